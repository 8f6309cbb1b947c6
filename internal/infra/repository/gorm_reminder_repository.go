package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
)

const reminderIDSequence = "reminder_id_seq"

type reminderModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"not null"`
	Hour      int    `gorm:"not null"`
	Minute    int    `gorm:"not null"`
	Enabled   bool   `gorm:"not null"`
	Days      string `gorm:"type:char(7);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (reminderModel) TableName() string {
	return "reminders"
}

func toModel(r domain.Reminder) reminderModel {
	return reminderModel{
		ID:      r.ID,
		Name:    r.Name,
		Hour:    r.Hour,
		Minute:  r.Minute,
		Enabled: r.Enabled,
		Days:    r.Weekdays.String(),
	}
}

func (m reminderModel) toDomain() domain.Reminder {
	return domain.Reminder{
		ID:       m.ID,
		Name:     m.Name,
		Hour:     m.Hour,
		Minute:   m.Minute,
		Weekdays: domain.ParseWeekdays(m.Days),
		Enabled:  m.Enabled,
	}
}

// gormReminderRepository stores one row per reminder. Ids come from a
// Postgres sequence, so insertion order is id order.
type gormReminderRepository struct {
	db *gorm.DB
}

func NewGormReminderRepository(db *gorm.DB) (domain.ReminderRepository, error) {
	if err := db.AutoMigrate(&reminderModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate reminders table: %w", err)
	}
	if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS " + reminderIDSequence).Error; err != nil {
		return nil, fmt.Errorf("failed to create reminder id sequence: %w", err)
	}
	return &gormReminderRepository{db: db}, nil
}

func (r *gormReminderRepository) LoadAll(ctx context.Context) ([]domain.Reminder, error) {
	var models []reminderModel
	if err := r.db.WithContext(ctx).Order("id asc").Find(&models).Error; err != nil {
		return nil, storeError(err)
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for _, m := range models {
		reminders = append(reminders, m.toDomain())
	}
	return reminders, nil
}

func (r *gormReminderRepository) FindByID(ctx context.Context, id int64) (domain.Reminder, error) {
	var m reminderModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Reminder{}, fmt.Errorf("reminder %d: %w", id, domain.ErrRecordNotFound)
		}
		return domain.Reminder{}, storeError(err)
	}
	return m.toDomain(), nil
}

func (r *gormReminderRepository) Save(ctx context.Context, reminder domain.Reminder) error {
	m := toModel(reminder)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "hour", "minute", "enabled", "days", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return storeError(err)
	}
	return nil
}

func (r *gormReminderRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&reminderModel{}, id).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (r *gormReminderRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.WithContext(ctx).Raw("SELECT nextval(?)", reminderIDSequence).Scan(&id).Error; err != nil {
		return 0, storeError(err)
	}
	return id, nil
}
