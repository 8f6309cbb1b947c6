//go:build gcloud

package logging

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// gcpTraceAttrs correlates log entries with Cloud Trace spans.
func gcpTraceAttrs(ctx context.Context, projectID string) []slog.Attr {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || projectID == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, sc.TraceID().String())),
		slog.String("logging.googleapis.com/spanId", sc.SpanID().String()),
		slog.Bool("logging.googleapis.com/trace_sampled", sc.IsSampled()),
	}
}
