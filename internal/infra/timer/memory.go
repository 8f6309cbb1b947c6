package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type MemoryConfig struct {
	// ExactAllowed mirrors the platform permission for precise alarms.
	ExactAllowed bool
	// InexactWindow is the batching granularity of inexact timers.
	InexactWindow time.Duration
	Now           func() time.Time
}

type memoryTimer struct {
	timer   *time.Timer
	fireAt  time.Time
	payload Payload
	seq     uint64
}

// MemoryService keeps timers in process with time.AfterFunc. Pending timers
// are lost on restart; RescheduleAll restores them.
type MemoryService struct {
	mu       sync.Mutex
	timers   map[string]*memoryTimer
	seq      uint64
	dispatch DispatchFunc
	cfg      MemoryConfig
}

func NewMemoryService(dispatch DispatchFunc, cfg MemoryConfig) *MemoryService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MemoryService{
		timers:   make(map[string]*memoryTimer),
		dispatch: dispatch,
		cfg:      cfg,
	}
}

// SetDispatch replaces the callback; used when the dispatcher is built after
// the timer service.
func (s *MemoryService) SetDispatch(dispatch DispatchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = dispatch
}

func (s *MemoryService) Register(ctx context.Context, reg Registration) error {
	if reg.Mode == ModeExact && !s.cfg.ExactAllowed {
		return fmt.Errorf("%w: exact timers are not permitted", ErrRegistrationDenied)
	}

	fireAt := reg.FireAt
	if reg.Mode == ModeInexact {
		fireAt = roundUp(fireAt, s.cfg.InexactWindow)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[reg.Key]; ok {
		existing.timer.Stop()
	}

	s.seq++
	seq := s.seq
	key := reg.Key

	delay := max(fireAt.Sub(s.cfg.Now()), 0)

	s.timers[key] = &memoryTimer{
		timer:   time.AfterFunc(delay, func() { s.fire(key, seq) }),
		fireAt:  fireAt,
		payload: reg.Payload,
		seq:     seq,
	}

	slog.DebugContext(ctx, "memory timer registered",
		slog.String("key", key),
		slog.String("mode", reg.Mode.String()),
		slog.Time("fire_at", fireAt),
	)
	return nil
}

func (s *MemoryService) Cancel(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
		delete(s.timers, key)
		slog.DebugContext(ctx, "memory timer cancelled", slog.String("key", key))
	}
	return nil
}

// Pending reports the instant a key is armed for.
func (s *MemoryService) Pending(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return time.Time{}, false
	}
	return t.fireAt, true
}

func (s *MemoryService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops every pending timer without dispatching.
func (s *MemoryService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, key)
	}
}

func (s *MemoryService) fire(key string, seq uint64) {
	s.mu.Lock()
	t, ok := s.timers[key]
	if !ok || t.seq != seq {
		// Replaced or cancelled after the timer was already running.
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	dispatch := s.dispatch
	s.mu.Unlock()

	if dispatch == nil {
		slog.Warn("memory timer elapsed without dispatcher", slog.String("key", key))
		return
	}

	if err := dispatch(context.Background(), t.payload); err != nil {
		slog.Error("timer dispatch failed",
			slog.String("key", key),
			slog.String("event", "timer.dispatch.fail"),
			slog.String("error", err.Error()),
		)
	}
}

func roundUp(t time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return t
	}
	truncated := t.Truncate(window)
	if truncated.Before(t) {
		return truncated.Add(window)
	}
	return truncated
}
