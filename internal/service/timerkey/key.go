package timerkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

const prefix = "reminder-"

var ErrMalformedKey = errors.New("malformed timer key")

// KeyFor returns the stable identity of the timer for (reminderID, slot).
// Keys only contain [a-z0-9-] and never collide across reminders or slots.
func KeyFor(reminderID int64, slot domain.Slot) string {
	return prefix + strconv.FormatInt(reminderID, 10) + "-" + slot.String()
}

// Parse is the inverse of KeyFor.
func Parse(key string) (int64, domain.Slot, error) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	idx := strings.LastIndexByte(rest, '-')
	if idx <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	id, err := strconv.ParseInt(rest[:idx], 10, 64)
	if err != nil || id < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	slot, err := domain.ParseSlot(rest[idx+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %w", ErrMalformedKey, key, err)
	}

	return id, slot, nil
}

// WeekdayKeys lists the seven weekly keys of a reminder, Monday first.
func WeekdayKeys(reminderID int64) []string {
	keys := make([]string, 0, domain.DaysPerWeek)
	for day := domain.Monday; day <= domain.Sunday; day++ {
		keys = append(keys, KeyFor(reminderID, day))
	}
	return keys
}

// AllFor lists every key a reminder can own: seven weekdays then snooze.
func AllFor(reminderID int64) []string {
	return append(WeekdayKeys(reminderID), KeyFor(reminderID, domain.SlotSnooze))
}
