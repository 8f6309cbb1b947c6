package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		ServiceInfo:   ServiceInfo{Name: "weekly-alarm", Version: "v1"},
		Environment:   EnvDev,
		DefaultModule: Module("alarm"),
		Level:         slog.LevelInfo,
		Writer:        &buf,
	})

	ctx := WithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "armed", slog.String("event", "alarm.arm"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}

	checks := map[string]any{
		"severity":   "INFO",
		"message":    "armed",
		"env":        "dev",
		"module":     "alarm",
		"event":      "alarm.arm",
		"request_id": "req-1",
	}
	for k, want := range checks {
		if line[k] != want {
			t.Errorf("%s = %v, want %v", k, line[k], want)
		}
	}
	service, ok := line["service"].(map[string]any)
	if !ok || service["name"] != "weekly-alarm" {
		t.Errorf("service = %v", line["service"])
	}
}

func TestValidateAndExtractRequestID(t *testing.T) {
	valid := uuid.NewString()
	if got := ValidateAndExtractRequestID(valid); got != valid {
		t.Errorf("valid id replaced: %q", got)
	}

	for _, in := range []string{"", "not-a-uuid"} {
		got := ValidateAndExtractRequestID(in)
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("ValidateAndExtractRequestID(%q) = %q, not a UUID", in, got)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
