package domain

import (
	"errors"
	"testing"
	"time"
)

func TestWeekdaysRoundTripAllCombinations(t *testing.T) {
	for mask := 0; mask < 1<<DaysPerWeek; mask++ {
		var w Weekdays
		for day := 0; day < DaysPerWeek; day++ {
			w[day] = mask&(1<<day) != 0
		}

		encoded := w.String()
		if len(encoded) != DaysPerWeek {
			t.Fatalf("mask %07b: encoded length = %d, want %d", mask, len(encoded), DaysPerWeek)
		}

		if got := ParseWeekdays(encoded); got != w {
			t.Errorf("mask %07b: ParseWeekdays(%q) = %v, want %v", mask, encoded, got, w)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Weekdays
	}{
		{
			name:  "monday first",
			input: "1000000",
			want:  NewWeekdays(Monday),
		},
		{
			name:  "mon wed fri",
			input: "1010100",
			want:  NewWeekdays(Monday, Wednesday, Friday),
		},
		{
			name:  "short string leaves trailing days off",
			input: "11",
			want:  NewWeekdays(Monday, Tuesday),
		},
		{
			name:  "extra characters ignored",
			input: "00000011111",
			want:  NewWeekdays(Saturday, Sunday),
		},
		{
			name:  "non one characters read as off",
			input: "x1?0001",
			want:  NewWeekdays(Tuesday, Sunday),
		},
		{
			name:  "empty",
			input: "",
			want:  Weekdays{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseWeekdays(tt.input); got != tt.want {
				t.Errorf("ParseWeekdays(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWeekdaysSummary(t *testing.T) {
	tests := []struct {
		name string
		days Weekdays
		want string
	}{
		{name: "all", days: AllWeekdays(), want: "Every day"},
		{name: "none", days: Weekdays{}, want: "No days selected"},
		{name: "work week", days: NewWeekdays(Monday, Tuesday, Wednesday, Thursday, Friday), want: "Weekdays"},
		{name: "weekend", days: NewWeekdays(Saturday, Sunday), want: "Weekends"},
		{name: "list", days: NewWeekdays(Monday, Wednesday, Friday), want: "Mon, Wed, Fri"},
		{name: "single", days: NewWeekdays(Sunday), want: "Sun"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.days.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReminderValidate(t *testing.T) {
	tests := []struct {
		name     string
		reminder Reminder
		wantErr  error
	}{
		{name: "valid", reminder: NewReminder(1, "Water plants", 8, 30)},
		{name: "midnight", reminder: NewReminder(1, "x", 0, 0)},
		{name: "last minute", reminder: NewReminder(1, "x", 23, 59)},
		{name: "blank name", reminder: NewReminder(1, "  ", 8, 0), wantErr: ErrInvalidName},
		{name: "hour too large", reminder: NewReminder(1, "x", 24, 0), wantErr: ErrInvalidTimeOfDay},
		{name: "negative minute", reminder: NewReminder(1, "x", 8, -1), wantErr: ErrInvalidTimeOfDay},
		{name: "minute too large", reminder: NewReminder(1, "x", 8, 60), wantErr: ErrInvalidTimeOfDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reminder.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReminderNotificationBody(t *testing.T) {
	r := NewReminder(7, "Stretch", 8, 5)
	r.Weekdays = NewWeekdays(Monday, Wednesday, Friday)

	if got, want := r.NotificationBody(), "08:05 - Mon, Wed, Fri"; got != want {
		t.Errorf("NotificationBody() = %q, want %q", got, want)
	}
}

func TestSlot(t *testing.T) {
	for s := Monday; s <= SlotSnooze; s++ {
		parsed, err := ParseSlot(s.String())
		if err != nil {
			t.Fatalf("ParseSlot(%q): %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("ParseSlot(%q) = %v, want %v", s.String(), parsed, s)
		}
	}

	if _, err := ParseSlot("someday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Errorf("ParseSlot(someday) error = %v, want ErrInvalidWeekday", err)
	}
	if Slot(8).Valid() || Slot(-1).Valid() {
		t.Error("out of range slots must be invalid")
	}
	if SlotSnooze.IsWeekday() || !Sunday.IsWeekday() {
		t.Error("IsWeekday mismatch")
	}
}

func TestWeekdayFromTime(t *testing.T) {
	// 2024-01-15 is a Monday.
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		got := WeekdayFromTime(base.AddDate(0, 0, offset))
		if got != Slot(offset) {
			t.Errorf("offset %d: got %v, want %v", offset, got, Slot(offset))
		}
	}
}
