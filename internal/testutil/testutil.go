package testutil

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	postgresmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupRedisContainer(ctx context.Context, t *testing.T) (*redis.Client, func()) {
	t.Helper()

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("failed to start redis container: %v", r)
		}
	}()

	container, err := redismodule.Run(ctx, "redis:8-alpine")
	if err != nil {
		t.Skipf("failed to start redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Skipf("failed to get redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	cleanup := func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close redis client: %v", err)
		}

		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}

	return client, cleanup
}

func SetupPostgresContainer(ctx context.Context, t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("failed to start postgres container: %v", r)
		}
	}()

	container, err := postgresmodule.Run(ctx, "postgres:17-alpine",
		postgresmodule.WithDatabase("alarm"),
		postgresmodule.WithUsername("alarm"),
		postgresmodule.WithPassword("alarm"),
		postgresmodule.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Skipf("failed to get postgres connection string: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("failed to connect to postgres: %v", err)
	}

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				t.Logf("failed to close postgres connection: %v", err)
			}
		}

		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}

	return db, cleanup
}
