package notify

import "context"

//go:generate mockgen -source=sink.go -destination=sink_mock.go -package=notify

// Sink delivers user-visible notifications. Delivery is best effort: callers
// log errors and carry on.
type Sink interface {
	Notify(ctx context.Context, reminderID int64, title, body string) error
	Dismiss(ctx context.Context, reminderID int64) error
}
