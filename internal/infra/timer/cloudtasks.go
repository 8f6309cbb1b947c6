//go:build gcloud

package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/googleapis/gax-go/v2"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const cloudTasksIndexKey = "alarm:timers:cloudtasks"

type CloudTasksConfig struct {
	ProjectID           string
	LocationID          string
	QueueID             string
	TargetURL           string
	ServiceAccountEmail string
	MaxRetries          int
}

type tasksClient interface {
	CreateTask(ctx context.Context, req *taskspb.CreateTaskRequest, opts ...gax.CallOption) (*taskspb.Task, error)
	DeleteTask(ctx context.Context, req *taskspb.DeleteTaskRequest, opts ...gax.CallOption) error
	Close() error
}

// taskIndex maps a timer key to the id of its armed task.
type taskIndex interface {
	Current(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, taskID string) error
	Drop(ctx context.Context, key string) error
}

type redisTaskIndex struct {
	client *redis.Client
}

func (i redisTaskIndex) Current(ctx context.Context, key string) (string, error) {
	taskID, err := i.client.HGet(ctx, cloudTasksIndexKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return taskID, nil
}

func (i redisTaskIndex) Set(ctx context.Context, key, taskID string) error {
	return i.client.HSet(ctx, cloudTasksIndexKey, key, taskID).Err()
}

func (i redisTaskIndex) Drop(ctx context.Context, key string) error {
	return i.client.HDel(ctx, cloudTasksIndexKey, key).Err()
}

// CloudTasksService arms exact timers as Cloud Tasks HTTP tasks that POST the
// payload to the fire endpoint. A deleted task name cannot be reused for about
// an hour, so every registration gets a fresh task id and the current id per
// key is tracked in a Redis hash.
type CloudTasksService struct {
	client     tasksClient
	index      taskIndex
	cfg        CloudTasksConfig
	maxRetries int
	now        func() time.Time
}

func NewCloudTasksService(ctx context.Context, cfg CloudTasksConfig, index *redis.Client) (*CloudTasksService, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}

	return newCloudTasksService(client, redisTaskIndex{client: index}, cfg), nil
}

func newCloudTasksService(client tasksClient, index taskIndex, cfg CloudTasksConfig) *CloudTasksService {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &CloudTasksService{
		client:     client,
		index:      index,
		cfg:        cfg,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

func (s *CloudTasksService) queuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s",
		s.cfg.ProjectID, s.cfg.LocationID, s.cfg.QueueID)
}

func (s *CloudTasksService) taskPath(taskID string) string {
	return s.queuePath() + "/tasks/" + taskID
}

func (s *CloudTasksService) Register(ctx context.Context, reg Registration) error {
	body, err := json.Marshal(reg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal timer payload: %w", err)
	}

	previous, err := s.currentTaskID(ctx, reg.Key)
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("%s-%d", reg.Key, s.now().UnixNano())

	httpReq := &taskspb.HttpRequest{
		HttpMethod: taskspb.HttpMethod_POST,
		Url:        s.cfg.TargetURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: body,
	}
	if s.cfg.ServiceAccountEmail != "" {
		httpReq.AuthorizationHeader = &taskspb.HttpRequest_OidcToken{
			OidcToken: &taskspb.OidcToken{
				ServiceAccountEmail: s.cfg.ServiceAccountEmail,
			},
		}
	}

	req := &taskspb.CreateTaskRequest{
		Parent: s.queuePath(),
		Task: &taskspb.Task{
			Name:         s.taskPath(taskID),
			MessageType:  &taskspb.Task_HttpRequest{HttpRequest: httpReq},
			ScheduleTime: timestamppb.New(reg.FireAt),
		},
	}

	err = s.withRetry(ctx, "create", reg.Key, func() error {
		_, err := s.client.CreateTask(ctx, req)
		if status.Code(err) == codes.AlreadyExists {
			// an earlier attempt reached the server before failing
			return nil
		}
		return err
	})
	if err != nil {
		if status.Code(err) == codes.PermissionDenied {
			return fmt.Errorf("%w: %v", ErrRegistrationDenied, err)
		}
		return err
	}

	if err := s.index.Set(ctx, reg.Key, taskID); err != nil {
		indexErr := fmt.Errorf("failed to index task %s: %w", taskID, err)
		// an unindexed task can never be cancelled
		if delErr := s.deleteTask(ctx, reg.Key, taskID); delErr != nil {
			slog.ErrorContext(ctx, "failed to remove unindexed cloud task",
				slog.String("key", reg.Key),
				slog.String("task_id", taskID),
				slog.String("error", delErr.Error()),
			)
			return errors.Join(indexErr, delErr)
		}
		return indexErr
	}

	if previous != "" {
		if err := s.deleteTask(ctx, reg.Key, previous); err != nil {
			return err
		}
	}

	slog.DebugContext(ctx, "cloud task registered",
		slog.String("key", reg.Key),
		slog.String("task_id", taskID),
		slog.Time("fire_at", reg.FireAt),
	)
	return nil
}

func (s *CloudTasksService) Cancel(ctx context.Context, key string) error {
	taskID, err := s.currentTaskID(ctx, key)
	if err != nil {
		return err
	}
	if taskID == "" {
		return nil
	}

	if err := s.deleteTask(ctx, key, taskID); err != nil {
		return err
	}

	if err := s.index.Drop(ctx, key); err != nil {
		return fmt.Errorf("failed to drop task index for %s: %w", key, err)
	}
	return nil
}

func (s *CloudTasksService) Close() error {
	return s.client.Close()
}

func (s *CloudTasksService) currentTaskID(ctx context.Context, key string) (string, error) {
	taskID, err := s.index.Current(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read task index for %s: %w", key, err)
	}
	return taskID, nil
}

func (s *CloudTasksService) deleteTask(ctx context.Context, key, taskID string) error {
	return s.withRetry(ctx, "delete", key, func() error {
		err := s.client.DeleteTask(ctx, &taskspb.DeleteTaskRequest{Name: s.taskPath(taskID)})
		if status.Code(err) == codes.NotFound {
			slog.InfoContext(ctx, "task not found in Cloud Tasks (may have been processed)",
				slog.String("task_id", taskID),
			)
			return nil
		}
		return err
	})
}

func (s *CloudTasksService) withRetry(ctx context.Context, op, key string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.DebugContext(ctx, "retrying cloud task operation",
				slog.String("op", op),
				slog.String("key", key),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if status.Code(err) == codes.PermissionDenied {
			break
		}
		slog.WarnContext(ctx, "cloud task operation failed",
			slog.String("op", op),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	slog.ErrorContext(ctx, "all retries exhausted for cloud task operation",
		slog.String("op", op),
		slog.String("key", key),
		slog.Int("max_retries", s.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return fmt.Errorf("failed to %s cloud task after retries: %w", op, lastErr)
}
