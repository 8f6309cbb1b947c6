package timerkey

import (
	"errors"
	"regexp"
	"testing"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		id   int64
		slot domain.Slot
		want string
	}{
		{id: 42, slot: domain.Wednesday, want: "reminder-42-wed"},
		{id: 42, slot: domain.SlotSnooze, want: "reminder-42-snooze"},
		{id: 0, slot: domain.Monday, want: "reminder-0-mon"},
		{id: 1234567890123, slot: domain.Sunday, want: "reminder-1234567890123-sun"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := KeyFor(tt.id, tt.slot); got != tt.want {
				t.Errorf("KeyFor(%d, %v) = %q, want %q", tt.id, tt.slot, got, tt.want)
			}
		})
	}
}

func TestKeysAreDistinct(t *testing.T) {
	charset := regexp.MustCompile(`^[a-z0-9-]+$`)
	seen := make(map[string]struct{})

	for id := int64(0); id < 120; id++ {
		for slot := domain.Monday; slot <= domain.SlotSnooze; slot++ {
			key := KeyFor(id, slot)
			if _, dup := seen[key]; dup {
				t.Fatalf("duplicate key %q", key)
			}
			seen[key] = struct{}{}

			if !charset.MatchString(key) {
				t.Errorf("key %q contains characters outside [a-z0-9-]", key)
			}

			gotID, gotSlot, err := Parse(key)
			if err != nil {
				t.Fatalf("Parse(%q): %v", key, err)
			}
			if gotID != id || gotSlot != slot {
				t.Errorf("Parse(%q) = (%d, %v), want (%d, %v)", key, gotID, gotSlot, id, slot)
			}
		}
	}
}

func TestParseRejectsMalformedKeys(t *testing.T) {
	keys := []string{
		"",
		"reminder-",
		"reminder-42",
		"reminder--wed",
		"reminder-abc-wed",
		"reminder-42-someday",
		"alarm-42-wed",
		"reminder--1-mon",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if _, _, err := Parse(key); !errors.Is(err, ErrMalformedKey) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedKey", key, err)
			}
		})
	}
}

func TestAllFor(t *testing.T) {
	keys := AllFor(7)
	want := []string{
		"reminder-7-mon", "reminder-7-tue", "reminder-7-wed", "reminder-7-thu",
		"reminder-7-fri", "reminder-7-sat", "reminder-7-sun", "reminder-7-snooze",
	}

	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
