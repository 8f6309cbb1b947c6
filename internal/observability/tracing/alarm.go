package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const alarmTracerName = "github.com/KasumiMercury/primind-weekly-alarm/internal/service/alarm"

func AlarmTracer() trace.Tracer {
	return otel.Tracer(alarmTracerName)
}

func StartScheduleSpan(ctx context.Context, operation string, reminderID int64) (context.Context, trace.Span) {
	return AlarmTracer().Start(ctx, "alarm."+operation,
		trace.WithAttributes(
			attribute.Int64("reminder.id", reminderID),
		),
	)
}

func StartRescheduleAllSpan(ctx context.Context, recordCount int) (context.Context, trace.Span) {
	return AlarmTracer().Start(ctx, "alarm.reschedule_all",
		trace.WithAttributes(
			attribute.Int("reschedule.record_count", recordCount),
		),
	)
}

func StartFireSpan(ctx context.Context, key string, reminderID int64) (context.Context, trace.Span) {
	return AlarmTracer().Start(ctx, "alarm.fire",
		trace.WithAttributes(
			attribute.String("timer.key", key),
			attribute.Int64("reminder.id", reminderID),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

func StartExternalAPISpan(ctx context.Context, operation, url string) (context.Context, trace.Span) {
	return AlarmTracer().Start(ctx, "alarm.external_api."+operation,
		trace.WithAttributes(
			attribute.String("url", url),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func RecordScheduleResult(span trace.Span, armed, cancelled, warnings int, err error) {
	span.SetAttributes(
		attribute.Int("schedule.armed_count", armed),
		attribute.Int("schedule.cancelled_count", cancelled),
		attribute.Int("schedule.warning_count", warnings),
	)
	recordStatus(span, err)
}

func RecordRescheduleAllResult(span trace.Span, scheduled, failed int) {
	span.SetAttributes(
		attribute.Int("reschedule.scheduled_count", scheduled),
		attribute.Int("reschedule.failed_count", failed),
	)
	if failed > 0 {
		span.SetStatus(codes.Error, "some reminders failed to reschedule")
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

func RecordFireResult(span trace.Span, outcome string, nextFireAt time.Time, err error) {
	span.SetAttributes(attribute.String("fire.outcome", outcome))
	if !nextFireAt.IsZero() {
		span.SetAttributes(attribute.String("fire.next_fire_at", nextFireAt.Format(time.RFC3339)))
	}
	recordStatus(span, err)
}

func recordStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
