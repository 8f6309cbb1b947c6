package fire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/notify"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/timer"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/metrics"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/tracing"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/alarm"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/timerkey"
)

type Outcome struct {
	Outcome    domain.FireOutcome `json:"outcome"`
	Rearmed    bool               `json:"rearmed"`
	NextFireAt time.Time          `json:"next_fire_at,omitzero"`
}

// Handler reacts to elapsed timers. It always works from the stored record,
// never from the payload snapshot, and holds the reminder's lock from the
// read until the re-arm so a concurrent disable cannot be overtaken.
//
// A reminder that is disabled by the time its timer fires gets no
// notification; its registrations are cleared instead.
type Handler struct {
	repo         domain.ReminderRepository
	scheduler    *alarm.Scheduler
	sink         notify.Sink
	recorder     domain.FireRecorder
	alarmMetrics *metrics.AlarmMetrics
	now          func() time.Time
}

func NewHandler(
	repo domain.ReminderRepository,
	scheduler *alarm.Scheduler,
	sink notify.Sink,
	recorder domain.FireRecorder,
	alarmMetrics *metrics.AlarmMetrics,
) *Handler {
	return &Handler{
		repo:         repo,
		scheduler:    scheduler,
		sink:         sink,
		recorder:     recorder,
		alarmMetrics: alarmMetrics,
		now:          time.Now,
	}
}

// Dispatch adapts Handle to timer.DispatchFunc.
func (h *Handler) Dispatch(ctx context.Context, payload timer.Payload) error {
	_, err := h.Handle(ctx, payload)
	return err
}

func (h *Handler) Handle(ctx context.Context, payload timer.Payload) (*Outcome, error) {
	if !payload.Slot.Valid() {
		return nil, fmt.Errorf("%w: slot %d", domain.ErrInvalidWeekday, int(payload.Slot))
	}
	key := timerkey.KeyFor(payload.ReminderID, payload.Slot)

	ctx, span := tracing.StartFireSpan(ctx, key, payload.ReminderID)
	defer span.End()

	start := time.Now()
	firedAt := h.now()
	out := &Outcome{}

	err := h.scheduler.WithLock(ctx, payload.ReminderID, func(ctx context.Context) error {
		return h.handleLocked(ctx, payload, key, out)
	})

	tracing.RecordFireResult(span, out.Outcome.String(), out.NextFireAt, err)
	if h.alarmMetrics != nil && out.Outcome != "" {
		h.alarmMetrics.RecordFire(ctx, slotKind(payload.Slot), out.Outcome.String(), time.Since(start))
	}
	if out.Outcome != "" {
		h.record(ctx, payload, firedAt, out)
	}

	return out, err
}

func (h *Handler) handleLocked(ctx context.Context, payload timer.Payload, key string, out *Outcome) error {
	record, err := h.repo.FindByID(ctx, payload.ReminderID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			out.Outcome = domain.FireOutcomeStale
			slog.InfoContext(ctx, "timer fired for a deleted reminder",
				slog.String("key", key),
				slog.String("event", "alarm.fire.stale"),
			)
			return nil
		}
		slog.ErrorContext(ctx, "failed to read reminder at fire time",
			slog.String("key", key),
			slog.String("event", "alarm.fire.store.fail"),
			slog.String("error", err.Error()),
		)
		return err
	}

	// A weekday slot the record no longer selects fired after an edit;
	// it is treated like a disabled reminder.
	deselected := payload.Slot.IsWeekday() && !record.Weekdays.Has(payload.Slot)

	switch {
	case record.Enabled && !deselected:
		out.Outcome = domain.FireOutcomeDelivered
		if err := h.sink.Notify(ctx, record.ID, record.Name, record.NotificationBody()); err != nil {
			slog.WarnContext(ctx, "notification delivery failed",
				slog.String("key", key),
				slog.String("event", "alarm.notify.fail"),
				slog.String("error", err.Error()),
			)
		}
	case record.Enabled:
		out.Outcome = domain.FireOutcomeSuppressed
		slog.InfoContext(ctx, "notification suppressed for deselected weekday",
			slog.String("key", key),
			slog.String("event", "alarm.fire.suppressed"),
		)
	default:
		out.Outcome = domain.FireOutcomeSuppressed
		slog.InfoContext(ctx, "notification suppressed for disabled reminder",
			slog.String("key", key),
			slog.String("event", "alarm.fire.suppressed"),
		)
	}

	// Snooze is one-shot. Suppressed fires still go through Schedule so any
	// stray registration is cleared.
	if payload.Slot.IsSnooze() && record.Enabled {
		return nil
	}

	res, err := h.scheduler.Schedule(ctx, record)
	if err != nil {
		slog.ErrorContext(ctx, "failed to re-arm reminder",
			slog.String("key", key),
			slog.String("event", "alarm.rearm.fail"),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("re-arm %s: %w", key, err)
	}

	if at, ok := res.Armed[key]; ok {
		out.Rearmed = true
		out.NextFireAt = at
		slog.InfoContext(ctx, "weekly timer re-armed",
			slog.String("key", key),
			slog.Time("next_fire_at", at),
			slog.String("event", "alarm.rearm"),
		)
	}
	return nil
}

func (h *Handler) record(ctx context.Context, payload timer.Payload, firedAt time.Time, out *Outcome) {
	if h.recorder == nil {
		return
	}

	err := h.recorder.RecordFire(ctx, domain.FireRecord{
		EventID:    uuid.NewString(),
		ReminderID: payload.ReminderID,
		Slot:       payload.Slot,
		Outcome:    out.Outcome,
		Rearmed:    out.Rearmed,
		FiredAt:    firedAt,
		NextFireAt: out.NextFireAt,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record fire",
			slog.Int64("reminder_id", payload.ReminderID),
			slog.String("error", err.Error()),
		)
	}
}

func slotKind(slot domain.Slot) string {
	if slot.IsSnooze() {
		return "snooze"
	}
	return "weekly"
}
