package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

type dispatchRecorder struct {
	mu       sync.Mutex
	payloads []Payload
	fired    chan Payload
}

func newDispatchRecorder() *dispatchRecorder {
	return &dispatchRecorder{fired: make(chan Payload, 16)}
}

func (d *dispatchRecorder) dispatch(_ context.Context, p Payload) error {
	d.mu.Lock()
	d.payloads = append(d.payloads, p)
	d.mu.Unlock()
	d.fired <- p
	return nil
}

func (d *dispatchRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.payloads)
}

func TestMemoryServiceDeniesExactWhenNotAllowed(t *testing.T) {
	svc := NewMemoryService(nil, MemoryConfig{ExactAllowed: false})
	defer svc.Close()

	err := svc.Register(context.Background(), Registration{
		Key:    "reminder-1-mon",
		FireAt: time.Now().Add(time.Hour),
		Mode:   ModeExact,
	})
	if !errors.Is(err, ErrRegistrationDenied) {
		t.Fatalf("Register() error = %v, want ErrRegistrationDenied", err)
	}
	if svc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", svc.Len())
	}
}

func TestMemoryServiceInexactRoundsUpToWindow(t *testing.T) {
	svc := NewMemoryService(nil, MemoryConfig{InexactWindow: 5 * time.Minute})
	defer svc.Close()

	tests := []struct {
		name   string
		fireAt time.Time
		want   time.Time
	}{
		{
			name:   "inside window",
			fireAt: time.Date(2030, 1, 7, 8, 2, 0, 0, time.UTC),
			want:   time.Date(2030, 1, 7, 8, 5, 0, 0, time.UTC),
		},
		{
			name:   "on boundary",
			fireAt: time.Date(2030, 1, 7, 8, 5, 0, 0, time.UTC),
			want:   time.Date(2030, 1, 7, 8, 5, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Register(context.Background(), Registration{
				Key:    "reminder-1-mon",
				FireAt: tt.fireAt,
				Mode:   ModeInexact,
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, ok := svc.Pending("reminder-1-mon")
			if !ok {
				t.Fatal("timer not pending")
			}
			if !got.Equal(tt.want) {
				t.Errorf("Pending() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryServiceFiresOnce(t *testing.T) {
	rec := newDispatchRecorder()
	now := time.Now()
	svc := NewMemoryService(rec.dispatch, MemoryConfig{
		ExactAllowed: true,
		Now:          func() time.Time { return now },
	})
	defer svc.Close()

	payload := Payload{Key: "reminder-3-wed", ReminderID: 3, Slot: domain.Wednesday}
	ctx := context.Background()

	// Registering twice overwrites the first timer.
	for range 2 {
		if err := svc.Register(ctx, Registration{
			Key:     payload.Key,
			FireAt:  now.Add(20 * time.Millisecond),
			Payload: payload,
			Mode:    ModeExact,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	select {
	case got := <-rec.fired:
		if got != payload {
			t.Errorf("dispatched %+v, want %+v", got, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	time.Sleep(50 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("dispatch count = %d, want 1", rec.count())
	}
	if _, ok := svc.Pending(payload.Key); ok {
		t.Error("fired timer still pending")
	}
}

func TestMemoryServiceCancel(t *testing.T) {
	rec := newDispatchRecorder()
	now := time.Now()
	svc := NewMemoryService(rec.dispatch, MemoryConfig{
		ExactAllowed: true,
		Now:          func() time.Time { return now },
	})
	defer svc.Close()

	ctx := context.Background()
	if err := svc.Register(ctx, Registration{
		Key:     "reminder-4-fri",
		FireAt:  now.Add(30 * time.Millisecond),
		Payload: Payload{Key: "reminder-4-fri", ReminderID: 4, Slot: domain.Friday},
		Mode:    ModeExact,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Cancel(ctx, "reminder-4-fri"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Cancel(ctx, "reminder-unknown-key"); err != nil {
		t.Fatalf("cancel of unknown key: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("dispatch count = %d, want 0", rec.count())
	}
}
