package domain

import "context"

//go:generate mockgen -source=reminder_repository.go -destination=reminder_repository_mock.go -package=domain

// ReminderRepository persists the ordered reminder collection.
// Implementations must be read-your-writes consistent within a process and
// wrap backend failures with ErrStoreIO.
type ReminderRepository interface {
	LoadAll(ctx context.Context) ([]Reminder, error)
	FindByID(ctx context.Context, id int64) (Reminder, error)
	Save(ctx context.Context, reminder Reminder) error
	Delete(ctx context.Context, id int64) error
	NextID(ctx context.Context) (int64, error)
}
