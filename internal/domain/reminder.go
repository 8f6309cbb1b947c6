package domain

import (
	"fmt"
	"strings"
)

// Weekdays holds one flag per day, indexed Monday=0 … Sunday=6.
type Weekdays [DaysPerWeek]bool

func AllWeekdays() Weekdays {
	return Weekdays{true, true, true, true, true, true, true}
}

// NewWeekdays returns a set with the given days turned on.
func NewWeekdays(days ...Slot) Weekdays {
	var w Weekdays
	for _, d := range days {
		if d.IsWeekday() {
			w[d] = true
		}
	}
	return w
}

func (w Weekdays) Has(day Slot) bool {
	return day.IsWeekday() && w[day]
}

func (w Weekdays) Any() bool {
	for _, on := range w {
		if on {
			return true
		}
	}
	return false
}

func (w Weekdays) All() bool {
	for _, on := range w {
		if !on {
			return false
		}
	}
	return true
}

// String encodes the set as seven '0'/'1' characters, Monday first.
// This is the persisted "days" format.
func (w Weekdays) String() string {
	var b strings.Builder
	b.Grow(DaysPerWeek)
	for _, on := range w {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseWeekdays decodes the persisted "days" string. Only '1' turns a day on;
// characters beyond the seventh are ignored and missing ones read as off.
func ParseWeekdays(s string) Weekdays {
	var w Weekdays
	for i := 0; i < DaysPerWeek && i < len(s); i++ {
		w[i] = s[i] == '1'
	}
	return w
}

// Summary is the human readable form shown in notifications and lists.
func (w Weekdays) Summary() string {
	if w.All() {
		return "Every day"
	}
	if !w.Any() {
		return "No days selected"
	}
	if w == NewWeekdays(Monday, Tuesday, Wednesday, Thursday, Friday) {
		return "Weekdays"
	}
	if w == NewWeekdays(Saturday, Sunday) {
		return "Weekends"
	}

	names := make([]string, 0, DaysPerWeek)
	for i, on := range w {
		if on {
			names = append(names, weekdayShortNames[i])
		}
	}
	return strings.Join(names, ", ")
}

// Reminder is a named recurring weekly alarm. It is handled as a value:
// every change goes through ReminderRepository.Save with a new copy.
type Reminder struct {
	ID       int64
	Name     string
	Hour     int
	Minute   int
	Weekdays Weekdays
	Enabled  bool
}

// NewReminder returns an enabled reminder firing every day.
func NewReminder(id int64, name string, hour, minute int) Reminder {
	return Reminder{
		ID:       id,
		Name:     name,
		Hour:     hour,
		Minute:   minute,
		Weekdays: AllWeekdays(),
		Enabled:  true,
	}
}

func ValidateTimeOfDay(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, hour, minute)
	}
	return nil
}

// Validate checks the fields the editor is responsible for.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	return ValidateTimeOfDay(r.Hour, r.Minute)
}

func (r Reminder) TimeText() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

func (r Reminder) NotificationBody() string {
	return r.TimeText() + " - " + r.Weekdays.Summary()
}
