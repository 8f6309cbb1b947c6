package alarm

import (
	"errors"
	"fmt"
	"time"
)

// Warning is a soft failure: the operation succeeded in a degraded way.
type Warning struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

type Result struct {
	Armed     map[string]time.Time `json:"armed"`
	Cancelled []string             `json:"cancelled"`
	Warnings  []Warning            `json:"warnings,omitempty"`
}

func newResult() *Result {
	return &Result{
		Armed:     make(map[string]time.Time),
		Cancelled: make([]string, 0),
	}
}

type Failure struct {
	ReminderID int64 `json:"reminder_id"`
	Err        error `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("reminder %d: %v", f.ReminderID, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report aggregates a RescheduleAll pass. One reminder failing never stops
// the others.
type Report struct {
	Scheduled int       `json:"scheduled"`
	Skipped   int       `json:"skipped,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
