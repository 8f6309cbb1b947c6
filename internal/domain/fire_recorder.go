package domain

import (
	"context"
	"time"
)

type FireOutcome string

const (
	FireOutcomeDelivered  FireOutcome = "delivered"
	FireOutcomeSuppressed FireOutcome = "suppressed"
	FireOutcomeStale      FireOutcome = "stale"
)

func (o FireOutcome) String() string {
	return string(o)
}

type FireRecord struct {
	EventID    string
	ReminderID int64
	Slot       Slot
	Outcome    FireOutcome
	Rearmed    bool
	FiredAt    time.Time
	NextFireAt time.Time
}

type FireRecorder interface {
	RecordFire(ctx context.Context, record FireRecord) error
	Close() error
}
