package nextfire

import (
	"errors"
	"testing"
	"time"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

// 2024-01-16 is a Tuesday.
var tuesdayNine = time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)

func TestNextFireTime(t *testing.T) {
	tests := []struct {
		name    string
		hour    int
		minute  int
		weekday domain.Slot
		now     time.Time
		want    time.Time
	}{
		{
			name:    "earlier weekday moves to next week",
			hour:    8,
			weekday: domain.Monday,
			now:     tuesdayNine,
			want:    time.Date(2024, 1, 22, 8, 0, 0, 0, time.UTC),
		},
		{
			name:    "later weekday stays in this week",
			hour:    8,
			weekday: domain.Wednesday,
			now:     tuesdayNine,
			want:    time.Date(2024, 1, 17, 8, 0, 0, 0, time.UTC),
		},
		{
			name:    "same weekday later today",
			hour:    9,
			minute:  1,
			weekday: domain.Tuesday,
			now:     tuesdayNine,
			want:    time.Date(2024, 1, 16, 9, 1, 0, 0, time.UTC),
		},
		{
			name:    "same weekday already passed today",
			hour:    8,
			minute:  59,
			weekday: domain.Tuesday,
			now:     tuesdayNine,
			want:    time.Date(2024, 1, 23, 8, 59, 0, 0, time.UTC),
		},
		{
			name:    "exactly now counts as passed",
			hour:    9,
			weekday: domain.Tuesday,
			now:     tuesdayNine,
			want:    time.Date(2024, 1, 23, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "seconds past the minute count as passed",
			hour:    9,
			weekday: domain.Tuesday,
			now:     tuesdayNine.Add(30 * time.Second),
			want:    time.Date(2024, 1, 23, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "sunday from monday",
			hour:    23,
			minute:  59,
			weekday: domain.Sunday,
			now:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2024, 1, 21, 23, 59, 0, 0, time.UTC),
		},
		{
			name:    "monday from sunday night crosses month",
			hour:    0,
			minute:  0,
			weekday: domain.Monday,
			now:     time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC),
			want:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextFireTime(tt.hour, tt.minute, tt.weekday, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextFireTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFireTimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		hour    int
		minute  int
		weekday domain.Slot
		wantErr error
	}{
		{name: "hour 24", hour: 24, weekday: domain.Monday, wantErr: domain.ErrInvalidTimeOfDay},
		{name: "negative hour", hour: -1, weekday: domain.Monday, wantErr: domain.ErrInvalidTimeOfDay},
		{name: "minute 60", hour: 8, minute: 60, weekday: domain.Monday, wantErr: domain.ErrInvalidTimeOfDay},
		{name: "weekday 7", hour: 8, weekday: domain.SlotSnooze, wantErr: domain.ErrInvalidWeekday},
		{name: "negative weekday", hour: 8, weekday: domain.Slot(-1), wantErr: domain.ErrInvalidWeekday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextFireTime(tt.hour, tt.minute, tt.weekday, tuesdayNine)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNextFireTimeProperties(t *testing.T) {
	start := time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)
	nows := []time.Time{
		start,
		start.Add(37*time.Hour + 13*time.Minute + 7*time.Second),
		start.Add(4*24*time.Hour + 12*time.Hour),
		start.Add(6*24*time.Hour + 23*time.Hour + 59*time.Minute),
		start.Add(2*24*time.Hour + 7*time.Hour + 30*time.Minute),
		start.Add(5*24*time.Hour + 12*time.Hour),
	}

	for _, now := range nows {
		for weekday := domain.Monday; weekday <= domain.Sunday; weekday++ {
			for _, hm := range [][2]int{{0, 0}, {7, 30}, {12, 0}, {23, 59}} {
				got, err := NextFireTime(hm[0], hm[1], weekday, now)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if !got.After(now) {
					t.Errorf("now=%v weekday=%v: %v is not after now", now, weekday, got)
				}
				// A candidate exactly at now moves a full week, so 7 days is
				// reachable only on that tie. Otherwise the result is under a
				// week away, and at most 7 days minus 1 minute when now sits on
				// a whole minute.
				week := 7 * 24 * time.Hour
				onMinute := now.Second() == 0 && now.Nanosecond() == 0
				tie := onMinute && domain.WeekdayFromTime(now) == weekday &&
					now.Hour() == hm[0] && now.Minute() == hm[1]
				switch {
				case tie:
					if got.Sub(now) != week {
						t.Errorf("now=%v weekday=%v: %v, want exactly one week later", now, weekday, got)
					}
				case onMinute:
					if got.Sub(now) > week-time.Minute {
						t.Errorf("now=%v weekday=%v: %v is more than 7 days minus 1 minute away", now, weekday, got)
					}
				default:
					if got.Sub(now) >= week {
						t.Errorf("now=%v weekday=%v: %v is a week or more away", now, weekday, got)
					}
				}
				if domain.WeekdayFromTime(got) != weekday {
					t.Errorf("now=%v: weekday = %v, want %v", now, domain.WeekdayFromTime(got), weekday)
				}
				if got.Hour() != hm[0] || got.Minute() != hm[1] || got.Second() != 0 || got.Nanosecond() != 0 {
					t.Errorf("now=%v: time of day = %s, want %02d:%02d:00", now, got.Format("15:04:05.000"), hm[0], hm[1])
				}
			}
		}
	}
}

func TestNextFireTimeAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone database unavailable: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			// Clocks spring forward on Sunday 2024-03-10.
			name: "spring forward",
			now:  time.Date(2024, 3, 8, 9, 0, 0, 0, loc),
			want: time.Date(2024, 3, 11, 8, 0, 0, 0, loc),
		},
		{
			// Clocks fall back on Sunday 2024-11-03.
			name: "fall back",
			now:  time.Date(2024, 11, 1, 9, 0, 0, 0, loc),
			want: time.Date(2024, 11, 4, 8, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextFireTime(8, 0, domain.Monday, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextFireTime() = %v, want %v", got, tt.want)
			}
			if got.Hour() != 8 || got.Minute() != 0 {
				t.Errorf("wall clock = %s, want 08:00", got.Format("15:04"))
			}
		})
	}
}

func TestCalculatorUsesClock(t *testing.T) {
	calc := NewCalculator(func() time.Time { return tuesdayNine })

	got, err := calc.Next(8, 0, domain.Wednesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 1, 17, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
	if !calc.Now().Equal(tuesdayNine) {
		t.Errorf("Now() = %v, want %v", calc.Now(), tuesdayNine)
	}
}
