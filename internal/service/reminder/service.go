package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/notify"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/alarm"
)

type CreateInput struct {
	Name     string
	Hour     int
	Minute   int
	Weekdays *domain.Weekdays
	Enabled  *bool
}

// UpdateInput carries the editable fields; nil leaves a field unchanged.
type UpdateInput struct {
	Name     *string
	Hour     *int
	Minute   *int
	Weekdays *domain.Weekdays
}

type Result struct {
	Reminder domain.Reminder `json:"reminder"`
	Schedule *alarm.Result   `json:"schedule,omitempty"`
}

// Service owns the editing flow around the scheduler: every change is saved
// first and then the reminder's registrations are rebuilt, all under the
// reminder's lock.
type Service struct {
	repo      domain.ReminderRepository
	scheduler *alarm.Scheduler
	sink      notify.Sink
}

func NewService(repo domain.ReminderRepository, scheduler *alarm.Scheduler, sink notify.Sink) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		sink:      sink,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Reminder, error) {
	return s.repo.LoadAll(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Reminder, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	r := domain.NewReminder(0, in.Name, in.Hour, in.Minute)
	if in.Weekdays != nil {
		r.Weekdays = *in.Weekdays
	}
	if in.Enabled != nil {
		r.Enabled = *in.Enabled
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		return nil, err
	}
	r.ID = id

	var res *Result
	err = s.scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		res, err = s.saveAndSchedule(ctx, r)
		return err
	})
	if err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "reminder created",
		slog.Int64("reminder_id", id),
		slog.String("days", r.Weekdays.String()),
		slog.String("time", r.TimeText()),
	)
	return res, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Result, error) {
	var res *Result
	err := s.scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			r.Name = *in.Name
		}
		if in.Hour != nil {
			r.Hour = *in.Hour
		}
		if in.Minute != nil {
			r.Minute = *in.Minute
		}
		if in.Weekdays != nil {
			r.Weekdays = *in.Weekdays
		}
		if err := r.Validate(); err != nil {
			return err
		}

		res, err = s.saveAndSchedule(ctx, r)
		return err
	})
	return res, err
}

// SetEnabled is the list view toggle. Disabling cancels every registration,
// snooze included.
func (s *Service) SetEnabled(ctx context.Context, id int64, enabled bool) (*Result, error) {
	var res *Result
	err := s.scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		r.Enabled = enabled
		res, err = s.saveAndSchedule(ctx, r)
		return err
	})
	return res, err
}

// Delete cancels the timers before the record goes away, so nothing can fire
// for an id that no longer exists.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			return err
		}

		if _, err := s.scheduler.CancelID(ctx, id); err != nil {
			return fmt.Errorf("cancel timers of reminder %d: %w", id, err)
		}

		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}

		s.dismiss(ctx, id)
		slog.InfoContext(ctx, "reminder deleted", slog.Int64("reminder_id", id))
		return nil
	})
}

// Snooze dismisses the current notification and arms the snooze timer.
// Disabled reminders cannot be snoozed.
func (s *Service) Snooze(ctx context.Context, id int64) (*alarm.Result, error) {
	var res *alarm.Result
	err := s.scheduler.WithLock(ctx, id, func(ctx context.Context) error {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !r.Enabled {
			return fmt.Errorf("snooze reminder %d: %w", id, domain.ErrReminderDisabled)
		}

		s.dismiss(ctx, id)

		res, err = s.scheduler.ScheduleSnooze(ctx, id, 0)
		return err
	})
	return res, err
}

func (s *Service) Dismiss(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.sink.Dismiss(ctx, id); err != nil {
		return fmt.Errorf("dismiss notification of reminder %d: %w", id, err)
	}
	return nil
}

// RescheduleAll rebuilds all registrations from the store. A store failure
// aborts the pass; per-reminder failures end up in the report. Each record is
// read again under its lock, so edits made while the pass runs are honored.
func (s *Service) RescheduleAll(ctx context.Context) (*alarm.Report, error) {
	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.scheduler.RescheduleAll(ctx, records, s.repo.FindByID), nil
}

func (s *Service) saveAndSchedule(ctx context.Context, r domain.Reminder) (*Result, error) {
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}

	schedule, err := s.scheduler.Schedule(ctx, r)
	res := &Result{Reminder: r, Schedule: schedule}
	if err != nil {
		slog.ErrorContext(ctx, "reminder saved but scheduling failed",
			slog.Int64("reminder_id", r.ID),
			slog.String("error", err.Error()),
		)
		return res, err
	}
	return res, nil
}

func (s *Service) dismiss(ctx context.Context, id int64) {
	if err := s.sink.Dismiss(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to dismiss notification",
			slog.Int64("reminder_id", id),
			slog.String("error", err.Error()),
		)
	}
}
