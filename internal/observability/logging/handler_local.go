//go:build !gcloud

package logging

import (
	"context"
	"log/slog"
)

// gcpTraceAttrs adds nothing outside GCP; local collectors read trace ids
// from the spans themselves.
func gcpTraceAttrs(_ context.Context, _ string) []slog.Attr {
	return nil
}
