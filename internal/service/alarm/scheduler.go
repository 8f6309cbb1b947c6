package alarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/timer"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/metrics"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/tracing"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/nextfire"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/timerkey"
)

const DefaultSnoozeDelay = 10 * time.Minute

type Config struct {
	SnoozeDelay time.Duration
}

// Scheduler keeps a reminder's timer registrations in line with its record.
// Every operation on one reminder id is serialized.
type Scheduler struct {
	timers       timer.Service
	calc         *nextfire.Calculator
	locker       *idLocker
	snoozeDelay  time.Duration
	alarmMetrics *metrics.AlarmMetrics
}

func NewScheduler(
	timers timer.Service,
	calc *nextfire.Calculator,
	cfg Config,
	alarmMetrics *metrics.AlarmMetrics,
) *Scheduler {
	if calc == nil {
		calc = nextfire.NewCalculator(nil)
	}
	snoozeDelay := cfg.SnoozeDelay
	if snoozeDelay <= 0 {
		snoozeDelay = DefaultSnoozeDelay
	}
	return &Scheduler{
		timers:       timers,
		calc:         calc,
		locker:       newIDLocker(),
		snoozeDelay:  snoozeDelay,
		alarmMetrics: alarmMetrics,
	}
}

func (s *Scheduler) SnoozeDelay() time.Duration {
	return s.snoozeDelay
}

// WithLock runs fn while holding the lock for reminderID. Scheduler calls
// made with the context passed to fn do not lock again.
func (s *Scheduler) WithLock(ctx context.Context, reminderID int64, fn func(ctx context.Context) error) error {
	ctx, release := s.locker.acquire(ctx, reminderID)
	defer release()
	return fn(ctx)
}

// Schedule arms one timer per selected weekday and clears the others. A
// disabled reminder is cancelled entirely, snooze included.
func (s *Scheduler) Schedule(ctx context.Context, r domain.Reminder) (*Result, error) {
	ctx, span := tracing.StartScheduleSpan(ctx, "schedule", r.ID)
	defer span.End()

	ctx, release := s.locker.acquire(ctx, r.ID)
	defer release()

	res := newResult()
	var err error
	if !r.Enabled {
		err = s.cancelKeys(ctx, res, timerkey.AllFor(r.ID))
	} else {
		err = s.schedule(ctx, res, r)
	}

	tracing.RecordScheduleResult(span, len(res.Armed), len(res.Cancelled), len(res.Warnings), err)
	return res, err
}

func (s *Scheduler) schedule(ctx context.Context, res *Result, r domain.Reminder) error {
	if err := domain.ValidateTimeOfDay(r.Hour, r.Minute); err != nil {
		return err
	}

	now := s.calc.Now()
	var errs []error

	for day := domain.Monday; day <= domain.Sunday; day++ {
		key := timerkey.KeyFor(r.ID, day)

		if !r.Weekdays.Has(day) {
			if err := s.cancel(ctx, res, key); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		fireAt, err := nextfire.NextFireTime(r.Hour, r.Minute, day, now)
		if err != nil {
			return err
		}

		if err := s.register(ctx, res, timer.Registration{
			Key:    key,
			FireAt: fireAt,
			Payload: timer.Payload{
				Key:        key,
				ReminderID: r.ID,
				Slot:       day,
			},
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("schedule reminder %d: %w", r.ID, errors.Join(errs...))
	}

	slog.DebugContext(ctx, "reminder scheduled",
		slog.Int64("reminder_id", r.ID),
		slog.Int("armed", len(res.Armed)),
		slog.Int("warnings", len(res.Warnings)),
	)
	return nil
}

// Cancel removes every weekly registration and the snooze registration.
func (s *Scheduler) Cancel(ctx context.Context, r domain.Reminder) (*Result, error) {
	return s.CancelID(ctx, r.ID)
}

func (s *Scheduler) CancelID(ctx context.Context, reminderID int64) (*Result, error) {
	ctx, span := tracing.StartScheduleSpan(ctx, "cancel", reminderID)
	defer span.End()

	ctx, release := s.locker.acquire(ctx, reminderID)
	defer release()

	res := newResult()
	err := s.cancelKeys(ctx, res, timerkey.AllFor(reminderID))

	tracing.RecordScheduleResult(span, 0, len(res.Cancelled), 0, err)
	return res, err
}

// ScheduleSnooze arms the one-shot snooze timer at now+delay, replacing any
// pending snooze. A non-positive delay uses the configured default. Weekly
// registrations are left alone.
func (s *Scheduler) ScheduleSnooze(ctx context.Context, reminderID int64, delay time.Duration) (*Result, error) {
	ctx, span := tracing.StartScheduleSpan(ctx, "snooze", reminderID)
	defer span.End()

	ctx, release := s.locker.acquire(ctx, reminderID)
	defer release()

	if delay <= 0 {
		delay = s.snoozeDelay
	}

	key := timerkey.KeyFor(reminderID, domain.SlotSnooze)
	res := newResult()
	err := s.register(ctx, res, timer.Registration{
		Key:    key,
		FireAt: s.calc.Now().Add(delay),
		Payload: timer.Payload{
			Key:        key,
			ReminderID: reminderID,
			Slot:       domain.SlotSnooze,
		},
	})

	tracing.RecordScheduleResult(span, len(res.Armed), 0, len(res.Warnings), err)
	return res, err
}

// ReloadFunc fetches the current record for an id.
type ReloadFunc func(ctx context.Context, reminderID int64) (domain.Reminder, error)

// RescheduleAll rebuilds every registration from the given records. Each
// record is scheduled independently under its own lock; failures are
// collected in the report. With a non-nil reload the record is re-read inside
// the lock and scheduled from that copy, and ids that no longer exist are
// skipped.
func (s *Scheduler) RescheduleAll(ctx context.Context, records []domain.Reminder, reload ReloadFunc) *Report {
	ctx, span := tracing.StartRescheduleAllSpan(ctx, len(records))
	defer span.End()

	start := time.Now()
	report := &Report{}

	for _, r := range records {
		skipped := false
		err := s.WithLock(ctx, r.ID, func(ctx context.Context) error {
			current := r
			if reload != nil {
				var err error
				current, err = reload(ctx, r.ID)
				if errors.Is(err, domain.ErrRecordNotFound) {
					skipped = true
					return nil
				}
				if err != nil {
					return err
				}
			}

			res, err := s.Schedule(ctx, current)
			if res != nil {
				report.Warnings = append(report.Warnings, res.Warnings...)
			}
			return err
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to reschedule reminder",
				slog.Int64("reminder_id", r.ID),
				slog.String("event", "alarm.reschedule.fail"),
				slog.String("error", err.Error()),
			)
			report.Failures = append(report.Failures, Failure{ReminderID: r.ID, Err: err})
			continue
		}
		if skipped {
			report.Skipped++
			continue
		}
		report.Scheduled++
	}

	if s.alarmMetrics != nil {
		s.alarmMetrics.RecordRescheduleAll(ctx, time.Since(start))
	}
	tracing.RecordRescheduleAllResult(span, report.Scheduled, len(report.Failures))

	slog.InfoContext(ctx, "reschedule completed",
		slog.Int("records", len(records)),
		slog.Int("scheduled", report.Scheduled),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failures)),
		slog.Int("warnings", len(report.Warnings)),
	)
	return report
}

// register tries exact precision first and falls back to inexact once when
// the backend denies it.
func (s *Scheduler) register(ctx context.Context, res *Result, reg timer.Registration) error {
	kind := slotKind(reg.Payload.Slot)

	reg.Mode = timer.ModeExact
	err := s.timers.Register(ctx, reg)
	if errors.Is(err, timer.ErrRegistrationDenied) {
		slog.WarnContext(ctx, "exact timer denied, falling back to inexact",
			slog.String("key", reg.Key),
			slog.String("event", "alarm.fallback"),
			slog.String("error", err.Error()),
		)
		if s.alarmMetrics != nil {
			s.alarmMetrics.RecordFallback(ctx, kind)
		}

		reg.Mode = timer.ModeInexact
		err = s.timers.Register(ctx, reg)
		if err == nil {
			res.Warnings = append(res.Warnings, Warning{
				Key:    reg.Key,
				Reason: "exact timing unavailable; registered as inexact",
			})
		}
	}

	if err != nil {
		if s.alarmMetrics != nil {
			s.alarmMetrics.RecordRegistration(ctx, kind, reg.Mode.String(), "failed")
		}
		slog.ErrorContext(ctx, "failed to register timer",
			slog.String("key", reg.Key),
			slog.String("event", "alarm.arm.fail"),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("register %s: %w", reg.Key, err)
	}

	if s.alarmMetrics != nil {
		s.alarmMetrics.RecordRegistration(ctx, kind, reg.Mode.String(), "success")
	}
	slog.DebugContext(ctx, "timer armed",
		slog.String("key", reg.Key),
		slog.String("mode", reg.Mode.String()),
		slog.Time("fire_at", reg.FireAt),
		slog.String("event", "alarm.arm"),
	)

	res.Armed[reg.Key] = reg.FireAt
	return nil
}

func (s *Scheduler) cancelKeys(ctx context.Context, res *Result, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := s.cancel(ctx, res, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) cancel(ctx context.Context, res *Result, key string) error {
	if err := s.timers.Cancel(ctx, key); err != nil {
		if s.alarmMetrics != nil {
			s.alarmMetrics.RecordCancellation(ctx, "failed")
		}
		return fmt.Errorf("cancel %s: %w", key, err)
	}

	if s.alarmMetrics != nil {
		s.alarmMetrics.RecordCancellation(ctx, "success")
	}
	res.Cancelled = append(res.Cancelled, key)
	return nil
}

func slotKind(slot domain.Slot) string {
	if slot.IsSnooze() {
		return "snooze"
	}
	return "weekly"
}
