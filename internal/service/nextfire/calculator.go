package nextfire

import (
	"fmt"
	"time"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

// Clock returns the current instant. Production code uses time.Now.
type Clock func() time.Time

// NextFireTime returns the earliest instant strictly after now that falls on
// weekday at hour:minute:00 in now's location.
//
// An occurrence equal to now counts as already passed, so the result moves to
// the following week. Days are added on the local calendar, which keeps the
// wall clock time stable across DST transitions.
func NextFireTime(hour, minute int, weekday domain.Slot, now time.Time) (time.Time, error) {
	if err := domain.ValidateTimeOfDay(hour, minute); err != nil {
		return time.Time{}, err
	}
	if !weekday.IsWeekday() {
		return time.Time{}, fmt.Errorf("%w: %d", domain.ErrInvalidWeekday, int(weekday))
	}

	offset := int(weekday) - int(domain.WeekdayFromTime(now))
	y, m, d := now.Date()

	candidate := time.Date(y, m, d+offset, hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = time.Date(y, m, d+offset+domain.DaysPerWeek, hour, minute, 0, 0, now.Location())
	}

	return candidate, nil
}

type Calculator struct {
	now Clock
}

func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = time.Now
	}
	return &Calculator{now: clock}
}

func (c *Calculator) Now() time.Time {
	return c.now()
}

// Next is NextFireTime evaluated against the calculator's clock.
func (c *Calculator) Next(hour, minute int, weekday domain.Slot) (time.Time, error) {
	return NextFireTime(hour, minute, weekday, c.now())
}
