package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
)

type Config struct {
	ServiceInfo   logging.ServiceInfo
	Environment   logging.Environment
	GCPProjectID  string
	SamplingRate  float64
	DefaultModule logging.Module
}

type Resources struct {
	logger         *slog.Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Init installs the global tracer and meter providers and builds the logger.
// Exporters come from newExporters, which differs per platform build.
func Init(ctx context.Context, cfg Config) (*Resources, error) {
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceInfo.Name),
			attribute.String("service.version", cfg.ServiceInfo.Version),
			attribute.String("deployment.environment", string(cfg.Environment)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}

	exporters, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1.0
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}
	if exporters.span != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporters.span))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if exporters.metric != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporters.metric)))
	}
	mp := sdkmetric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger := logging.NewLogger(logging.Config{
		ServiceInfo:   cfg.ServiceInfo,
		Environment:   cfg.Environment,
		GCPProjectID:  cfg.GCPProjectID,
		DefaultModule: cfg.DefaultModule,
	})

	return &Resources{
		logger:         logger,
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

func (r *Resources) Logger() *slog.Logger {
	return r.logger
}

// Shutdown flushes pending spans and metrics.
func (r *Resources) Shutdown(ctx context.Context) error {
	var errs []error
	if err := r.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer provider: %w", err))
	}
	if err := r.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("meter provider: %w", err))
	}
	return errors.Join(errs...)
}
