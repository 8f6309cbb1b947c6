//go:build !gcloud

package observability

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type exporterSet struct {
	span   sdktrace.SpanExporter
	metric sdkmetric.Exporter
}

// newExporters uses OTLP over HTTP when an endpoint is configured and keeps
// telemetry in-process otherwise.
func newExporters(ctx context.Context, _ Config) (exporterSet, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return exporterSet{}, nil
	}

	spanExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return exporterSet{}, fmt.Errorf("failed to create otlp trace exporter: %w", err)
	}

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return exporterSet{}, fmt.Errorf("failed to create otlp metric exporter: %w", err)
	}

	return exporterSet{span: spanExp, metric: metricExp}, nil
}
