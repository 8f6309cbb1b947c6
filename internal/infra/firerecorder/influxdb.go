//go:build !gcloud

package firerecorder

import (
	"context"
	"log/slog"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

const fireMeasurement = "alarm_fire"

type influxDBRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.FireRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "fire recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.InfluxDBToken == "" || cfg.InfluxDBOrg == "" {
		slog.WarnContext(ctx, "InfluxDB token or org not configured, fire recording disabled",
			slog.String("url", cfg.InfluxDBURL),
		)
		return NewNoopRecorder(), nil
	}

	client := influxdb2.NewClient(cfg.InfluxDBURL, cfg.InfluxDBToken)

	slog.InfoContext(ctx, "fire recorder initialized",
		slog.String("type", "influxdb"),
		slog.String("url", cfg.InfluxDBURL),
		slog.String("bucket", cfg.InfluxDBBucket),
	)

	return &influxDBRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxDBOrg, cfg.InfluxDBBucket),
	}, nil
}

func (r *influxDBRecorder) RecordFire(ctx context.Context, record domain.FireRecord) error {
	if err := r.writeAPI.WritePoint(ctx, firePoint(record)); err != nil {
		slog.WarnContext(ctx, "failed to write fire record to InfluxDB",
			slog.String("error", err.Error()),
			slog.Int64("reminder_id", record.ReminderID),
			slog.String("slot", record.Slot.String()),
		)
	}
	return nil
}

func firePoint(record domain.FireRecord) *write.Point {
	fields := map[string]any{
		"event_id": record.EventID,
		"rearmed":  record.Rearmed,
	}
	if !record.NextFireAt.IsZero() {
		fields["next_fire_unix"] = record.NextFireAt.Unix()
	}

	return influxdb2.NewPoint(
		fireMeasurement,
		map[string]string{
			"reminder_id": strconv.FormatInt(record.ReminderID, 10),
			"slot":        record.Slot.String(),
			"outcome":     record.Outcome.String(),
		},
		fields,
		record.FiredAt,
	)
}

func (r *influxDBRecorder) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
