package notify

import (
	"context"
	"errors"
)

// FanoutSink delivers to every sink and joins their errors.
type FanoutSink struct {
	sinks []Sink
}

func Fanout(sinks ...Sink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

func (f *FanoutSink) Notify(ctx context.Context, reminderID int64, title, body string) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Notify(ctx, reminderID, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutSink) Dismiss(ctx context.Context, reminderID int64) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Dismiss(ctx, reminderID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
