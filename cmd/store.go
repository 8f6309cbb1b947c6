package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/config"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/health"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/repository"
)

func initStore(_ context.Context, cfg *config.Config, redisClient *redis.Client) (domain.ReminderRepository, []health.Dependency, func() error, error) {
	if cfg.Store.Backend != config.StorePostgres {
		slog.Info("reminder store initialized", slog.String("type", "redis"))
		return repository.NewReminderRepository(redisClient), nil, nil, nil
	}

	db, err := openPostgres(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	repo, err := repository.NewGormReminderRepository(db)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	slog.Info("reminder store initialized", slog.String("type", "postgres"))
	return repo, []health.Dependency{health.PostgresDependency(db)}, cleanup, nil
}

func openPostgres(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	var db *gorm.DB
	var err error
	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
		if err == nil {
			break
		}
		slog.Warn("database connection attempt failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()),
		)
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
