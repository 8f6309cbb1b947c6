package domain

import (
	"fmt"
	"time"
)

// Slot identifies one timer registration of a reminder: one of the seven
// weekdays (Monday first) or the single snooze slot.
type Slot int

const (
	Monday Slot = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
	SlotSnooze
)

const DaysPerWeek = 7

var slotNames = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun", "snooze"}

var weekdayShortNames = [DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (s Slot) IsWeekday() bool {
	return s >= Monday && s <= Sunday
}

func (s Slot) IsSnooze() bool {
	return s == SlotSnooze
}

func (s Slot) Valid() bool {
	return s.IsWeekday() || s.IsSnooze()
}

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// ParseSlot is the inverse of Slot.String.
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown slot %q: %w", name, ErrInvalidWeekday)
}

// WeekdayFromTime converts Go's Sunday-based weekday to the Monday-based slot.
func WeekdayFromTime(t time.Time) Slot {
	return Slot((int(t.Weekday()) + 6) % DaysPerWeek)
}
