package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

const (
	remindersDataKey   = "reminders:data"
	remindersNextIDKey = "reminders:next_id"

	maxTxRetries = 10
)

// reminderRecord is the persisted shape. Enabled is a pointer so a missing
// field reads as enabled.
type reminderRecord struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Enabled *bool  `json:"enabled,omitempty"`
	Days    string `json:"days"`
}

func toRecord(r domain.Reminder) reminderRecord {
	enabled := r.Enabled
	return reminderRecord{
		ID:      r.ID,
		Name:    r.Name,
		Hour:    r.Hour,
		Minute:  r.Minute,
		Enabled: &enabled,
		Days:    r.Weekdays.String(),
	}
}

func (rec reminderRecord) toDomain() domain.Reminder {
	enabled := true
	if rec.Enabled != nil {
		enabled = *rec.Enabled
	}
	return domain.Reminder{
		ID:       rec.ID,
		Name:     rec.Name,
		Hour:     rec.Hour,
		Minute:   rec.Minute,
		Weekdays: domain.ParseWeekdays(rec.Days),
		Enabled:  enabled,
	}
}

// reminderRepository keeps the whole ordered collection as one JSON array.
// Writes are optimistic WATCH transactions retried on conflict.
type reminderRepository struct {
	client *redis.Client
}

func NewReminderRepository(client *redis.Client) domain.ReminderRepository {
	return &reminderRepository{
		client: client,
	}
}

func (r *reminderRepository) LoadAll(ctx context.Context) ([]domain.Reminder, error) {
	records, err := readRecords(ctx, r.client)
	if err != nil {
		return nil, err
	}

	reminders := make([]domain.Reminder, 0, len(records))
	for _, rec := range records {
		reminders = append(reminders, rec.toDomain())
	}
	return reminders, nil
}

func (r *reminderRepository) FindByID(ctx context.Context, id int64) (domain.Reminder, error) {
	records, err := readRecords(ctx, r.client)
	if err != nil {
		return domain.Reminder{}, err
	}

	for _, rec := range records {
		if rec.ID == id {
			return rec.toDomain(), nil
		}
	}
	return domain.Reminder{}, fmt.Errorf("reminder %d: %w", id, domain.ErrRecordNotFound)
}

// Save replaces the record with the same id in place, or appends it.
func (r *reminderRepository) Save(ctx context.Context, reminder domain.Reminder) error {
	return r.update(ctx, func(records []reminderRecord) []reminderRecord {
		rec := toRecord(reminder)
		idx := slices.IndexFunc(records, func(existing reminderRecord) bool {
			return existing.ID == reminder.ID
		})
		if idx >= 0 {
			records[idx] = rec
			return records
		}
		return append(records, rec)
	})
}

func (r *reminderRepository) Delete(ctx context.Context, id int64) error {
	return r.update(ctx, func(records []reminderRecord) []reminderRecord {
		return slices.DeleteFunc(records, func(rec reminderRecord) bool {
			return rec.ID == id
		})
	})
}

func (r *reminderRepository) NextID(ctx context.Context) (int64, error) {
	id, err := r.client.Incr(ctx, remindersNextIDKey).Result()
	if err != nil {
		return 0, storeError(err)
	}
	return id, nil
}

func (r *reminderRepository) update(ctx context.Context, mutate func([]reminderRecord) []reminderRecord) error {
	txf := func(tx *redis.Tx) error {
		records, err := readRecords(ctx, tx)
		if err != nil {
			return err
		}

		data, err := json.Marshal(mutate(records))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidReminderData, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, remindersDataKey, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, remindersDataKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrStoreIO) {
			return err
		}
		return storeError(err)
	}

	return storeError(ErrTxRetriesExhausted)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRecords(ctx context.Context, c stringGetter) ([]reminderRecord, error) {
	data, err := c.Get(ctx, remindersDataKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []reminderRecord{}, nil
		}
		return nil, storeError(err)
	}

	var records []reminderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, storeError(fmt.Errorf("%w: %w", ErrInvalidReminderData, err))
	}
	return records, nil
}

func storeError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreIO, err)
}
