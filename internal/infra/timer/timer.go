package timer

import (
	"context"
	"errors"
	"time"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

//go:generate mockgen -source=timer.go -destination=timer_mock.go -package=timer

// ErrRegistrationDenied means the backend refuses the requested precision.
// Callers may retry the same registration in ModeInexact.
var ErrRegistrationDenied = errors.New("timer registration denied")

type Mode int

const (
	ModeExact Mode = iota
	ModeInexact
)

func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeInexact:
		return "inexact"
	default:
		return "unknown"
	}
}

// Payload is handed back to the dispatcher when a timer elapses.
type Payload struct {
	Key        string      `json:"key"`
	ReminderID int64       `json:"reminder_id"`
	Slot       domain.Slot `json:"slot"`
}

type Registration struct {
	Key     string
	FireAt  time.Time
	Payload Payload
	Mode    Mode
}

// Service is a platform timer facility keyed by string. Register overwrites
// any pending timer with the same key; Cancel of an unknown key is a no-op.
type Service interface {
	Register(ctx context.Context, reg Registration) error
	Cancel(ctx context.Context, key string) error
}

// DispatchFunc receives elapsed timers. A non-nil error asks backends that
// support redelivery to try again later.
type DispatchFunc func(ctx context.Context, payload Payload) error
