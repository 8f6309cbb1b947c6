//go:build gcloud

package firerecorder

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

type bigQueryRecord struct {
	EventID    string                 `bigquery:"event_id"`
	RecordedAt time.Time              `bigquery:"recorded_at"`
	FiredAt    time.Time              `bigquery:"fired_at"`
	ReminderID int64                  `bigquery:"reminder_id"`
	Slot       string                 `bigquery:"slot"`
	Outcome    string                 `bigquery:"outcome"`
	Rearmed    bool                   `bigquery:"rearmed"`
	NextFireAt bigquery.NullTimestamp `bigquery:"next_fire_at"`
}

type bigQueryRecorder struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
}

func NewRecorder(ctx context.Context, cfg *Config) (domain.FireRecorder, error) {
	if cfg.Disabled {
		slog.InfoContext(ctx, "fire recording disabled")
		return NewNoopRecorder(), nil
	}

	if cfg.BigQueryProjectID == "" {
		slog.WarnContext(ctx, "BigQuery project ID not configured, fire recording disabled")
		return NewNoopRecorder(), nil
	}

	client, err := bigquery.NewClient(ctx, cfg.BigQueryProjectID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create BigQuery client, fire recording disabled",
			slog.String("error", err.Error()),
			slog.String("project_id", cfg.BigQueryProjectID),
		)
		return NewNoopRecorder(), nil
	}

	slog.InfoContext(ctx, "fire recorder initialized",
		slog.String("type", "bigquery"),
		slog.String("project_id", cfg.BigQueryProjectID),
		slog.String("dataset", cfg.BigQueryDataset),
		slog.String("table", cfg.BigQueryTable),
	)

	return &bigQueryRecorder{
		client:   client,
		inserter: client.Dataset(cfg.BigQueryDataset).Table(cfg.BigQueryTable).Inserter(),
	}, nil
}

func (r *bigQueryRecorder) RecordFire(ctx context.Context, record domain.FireRecord) error {
	row := &bigQueryRecord{
		EventID:    record.EventID,
		RecordedAt: time.Now(),
		FiredAt:    record.FiredAt,
		ReminderID: record.ReminderID,
		Slot:       record.Slot.String(),
		Outcome:    record.Outcome.String(),
		Rearmed:    record.Rearmed,
		NextFireAt: bigquery.NullTimestamp{
			Timestamp: record.NextFireAt,
			Valid:     !record.NextFireAt.IsZero(),
		},
	}

	// EventID doubles as the insert id so retried fires are deduplicated.
	saver := &bigquery.StructSaver{Struct: row, InsertID: record.EventID}
	if err := r.inserter.Put(ctx, saver); err != nil {
		slog.WarnContext(ctx, "failed to insert fire record to BigQuery",
			slog.String("error", err.Error()),
			slog.Int64("reminder_id", record.ReminderID),
		)
	}

	return nil
}

func (r *bigQueryRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
