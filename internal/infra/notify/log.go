package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notifications to the structured log.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Notify(ctx context.Context, reminderID int64, title, body string) error {
	slog.InfoContext(ctx, "notification",
		slog.String("event", "notify.show"),
		slog.Int64("reminder_id", reminderID),
		slog.String("title", title),
		slog.String("body", body),
	)
	return nil
}

func (s *LogSink) Dismiss(ctx context.Context, reminderID int64) error {
	slog.InfoContext(ctx, "notification dismissed",
		slog.String("event", "notify.dismiss"),
		slog.Int64("reminder_id", reminderID),
	)
	return nil
}
