//go:build gcloud

package timer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeTasksClient struct {
	mu        sync.Mutex
	armed     map[string]bool
	createErr []error
	deleteErr error
}

func newFakeTasksClient() *fakeTasksClient {
	return &fakeTasksClient{armed: make(map[string]bool)}
}

func (c *fakeTasksClient) CreateTask(_ context.Context, req *taskspb.CreateTaskRequest, _ ...gax.CallOption) (*taskspb.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if len(c.createErr) > 0 {
		err, c.createErr = c.createErr[0], c.createErr[1:]
	}
	if err != nil && status.Code(err) != codes.Unavailable {
		return nil, err
	}
	// Unavailable simulates a create that reached the server but whose
	// response was lost.
	if c.armed[req.GetTask().GetName()] {
		return nil, status.Error(codes.AlreadyExists, "task exists")
	}
	c.armed[req.GetTask().GetName()] = true
	if err != nil {
		return nil, err
	}
	return req.GetTask(), nil
}

func (c *fakeTasksClient) DeleteTask(_ context.Context, req *taskspb.DeleteTaskRequest, _ ...gax.CallOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteErr != nil {
		return c.deleteErr
	}
	if !c.armed[req.GetName()] {
		return status.Error(codes.NotFound, "no task")
	}
	delete(c.armed, req.GetName())
	return nil
}

func (c *fakeTasksClient) Close() error { return nil }

func (c *fakeTasksClient) armedNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.armed))
	for name := range c.armed {
		names = append(names, name)
	}
	return names
}

type fakeTaskIndex struct {
	ids    map[string]string
	setErr error
}

func (i *fakeTaskIndex) Current(_ context.Context, key string) (string, error) {
	return i.ids[key], nil
}

func (i *fakeTaskIndex) Set(_ context.Context, key, taskID string) error {
	if i.setErr != nil {
		return i.setErr
	}
	i.ids[key] = taskID
	return nil
}

func (i *fakeTaskIndex) Drop(_ context.Context, key string) error {
	delete(i.ids, key)
	return nil
}

func newTestCloudTasks(client *fakeTasksClient, index *fakeTaskIndex) *CloudTasksService {
	s := newCloudTasksService(client, index, CloudTasksConfig{
		ProjectID:  "p",
		LocationID: "l",
		QueueID:    "q",
		TargetURL:  "https://alarm.example.com/api/v1/alarms/fire",
		MaxRetries: 3,
	})
	var n int64
	s.now = func() time.Time {
		n++
		return time.Unix(0, n)
	}
	return s
}

func cloudTaskRegistration(key string) Registration {
	return Registration{
		Key:     key,
		FireAt:  time.Date(2024, 1, 17, 7, 0, 0, 0, time.UTC),
		Payload: Payload{Key: key, ReminderID: 1},
		Mode:    ModeExact,
	}
}

func TestCloudTasksRegisterReplacesPreviousTask(t *testing.T) {
	client := newFakeTasksClient()
	index := &fakeTaskIndex{ids: make(map[string]string)}
	s := newTestCloudTasks(client, index)
	ctx := context.Background()

	for range 2 {
		if err := s.Register(ctx, cloudTaskRegistration("reminder-1-wed")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	names := client.armedNames()
	if len(names) != 1 {
		t.Fatalf("armed tasks = %v, want exactly one", names)
	}
	if !strings.HasSuffix(names[0], "/tasks/"+index.ids["reminder-1-wed"]) {
		t.Errorf("armed %s, index points at %s", names[0], index.ids["reminder-1-wed"])
	}

	if err := s.Cancel(ctx, "reminder-1-wed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.armedNames(); len(got) != 0 {
		t.Errorf("armed tasks after cancel = %v", got)
	}
}

func TestCloudTasksRegisterRemovesTaskWhenIndexFails(t *testing.T) {
	client := newFakeTasksClient()
	index := &fakeTaskIndex{ids: make(map[string]string)}
	s := newTestCloudTasks(client, index)
	ctx := context.Background()

	if err := s.Register(ctx, cloudTaskRegistration("reminder-1-wed")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	previous := index.ids["reminder-1-wed"]

	boom := errors.New("redis down")
	index.setErr = boom

	err := s.Register(ctx, cloudTaskRegistration("reminder-1-wed"))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}

	names := client.armedNames()
	if len(names) != 1 || !strings.HasSuffix(names[0], "/tasks/"+previous) {
		t.Fatalf("armed tasks = %v, want only the indexed %s", names, previous)
	}

	index.setErr = nil
	if err := s.Cancel(ctx, "reminder-1-wed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.armedNames(); len(got) != 0 {
		t.Errorf("armed tasks after cancel = %v", got)
	}
}

func TestCloudTasksRegisterTreatsAlreadyExistsAsCreated(t *testing.T) {
	client := newFakeTasksClient()
	client.createErr = []error{status.Error(codes.Unavailable, "response lost")}
	index := &fakeTaskIndex{ids: make(map[string]string)}
	s := newTestCloudTasks(client, index)

	if err := s.Register(context.Background(), cloudTaskRegistration("reminder-2-fri")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.armedNames(); len(got) != 1 {
		t.Fatalf("armed tasks = %v, want one", got)
	}
	if index.ids["reminder-2-fri"] == "" {
		t.Error("task not indexed")
	}
}

func TestCloudTasksRegisterPermissionDenied(t *testing.T) {
	client := newFakeTasksClient()
	client.createErr = []error{status.Error(codes.PermissionDenied, "no exact")}
	index := &fakeTaskIndex{ids: make(map[string]string)}
	s := newTestCloudTasks(client, index)

	err := s.Register(context.Background(), cloudTaskRegistration("reminder-3-mon"))
	if !errors.Is(err, ErrRegistrationDenied) {
		t.Fatalf("error = %v, want ErrRegistrationDenied", err)
	}
	if len(index.ids) != 0 {
		t.Errorf("index = %v, want empty", index.ids)
	}
}

func TestCloudTasksCancelUnknownKey(t *testing.T) {
	s := newTestCloudTasks(newFakeTasksClient(), &fakeTaskIndex{ids: make(map[string]string)})

	if err := s.Cancel(context.Background(), "reminder-9-sun"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
