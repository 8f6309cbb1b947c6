package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	alarmMeterName = "alarm.service"
)

type AlarmMetrics struct {
	registrations    metric.Int64Counter
	cancellations    metric.Int64Counter
	fallbacks        metric.Int64Counter
	fires            metric.Int64Counter
	fireLatency      metric.Float64Histogram
	rescheduleLength metric.Float64Histogram
}

func NewAlarmMetrics() (*AlarmMetrics, error) {
	meter := otel.Meter(alarmMeterName)

	registrations, err := meter.Int64Counter(
		"alarm_registrations_total",
		metric.WithDescription("Total number of timer registrations"),
		metric.WithUnit("{timer}"),
	)
	if err != nil {
		return nil, err
	}

	cancellations, err := meter.Int64Counter(
		"alarm_cancellations_total",
		metric.WithDescription("Total number of timer cancellations"),
		metric.WithUnit("{timer}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"alarm_precision_fallbacks_total",
		metric.WithDescription("Registrations downgraded from exact to inexact"),
		metric.WithUnit("{timer}"),
	)
	if err != nil {
		return nil, err
	}

	fires, err := meter.Int64Counter(
		"alarm_fires_total",
		metric.WithDescription("Total number of elapsed timers handled"),
		metric.WithUnit("{fire}"),
	)
	if err != nil {
		return nil, err
	}

	fireLatency, err := meter.Float64Histogram(
		"alarm_fire_handling_duration_seconds",
		metric.WithDescription("Time spent handling an elapsed timer"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
		),
	)
	if err != nil {
		return nil, err
	}

	rescheduleLength, err := meter.Float64Histogram(
		"alarm_reschedule_all_duration_seconds",
		metric.WithDescription("Duration of a full reschedule pass"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
		),
	)
	if err != nil {
		return nil, err
	}

	return &AlarmMetrics{
		registrations:    registrations,
		cancellations:    cancellations,
		fallbacks:        fallbacks,
		fires:            fires,
		fireLatency:      fireLatency,
		rescheduleLength: rescheduleLength,
	}, nil
}

func (m *AlarmMetrics) RecordRegistration(ctx context.Context, slotKind, mode, outcome string) {
	m.registrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slot_kind", slotKind),
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}

func (m *AlarmMetrics) RecordCancellation(ctx context.Context, outcome string) {
	m.cancellations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *AlarmMetrics) RecordFallback(ctx context.Context, slotKind string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slot_kind", slotKind),
	))
}

func (m *AlarmMetrics) RecordFire(ctx context.Context, slotKind, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("slot_kind", slotKind),
		attribute.String("outcome", outcome),
	)
	m.fires.Add(ctx, 1, attrs)
	m.fireLatency.Record(ctx, duration.Seconds(), attrs)
}

func (m *AlarmMetrics) RecordRescheduleAll(ctx context.Context, duration time.Duration) {
	m.rescheduleLength.Record(ctx, duration.Seconds())
}
