//go:build !gcloud

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/config"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/timer"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
)

// Timers live in-process locally, so Redis is only needed by the redis store.
const platformNeedsRedis = false

func loadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.String("error", err.Error()))
	}
}

func initTimers(_ context.Context, cfg *config.Config, _ *redis.Client) (*platformTimers, error) {
	mem := timer.NewMemoryService(nil, timer.MemoryConfig{
		ExactAllowed:  cfg.Alarm.ExactAllowed,
		InexactWindow: cfg.Alarm.InexactWindow,
	})

	slog.Info("timer service initialized",
		slog.String("type", "memory"),
		slog.Bool("exact_allowed", cfg.Alarm.ExactAllowed),
		slog.Duration("inexact_window", cfg.Alarm.InexactWindow),
	)

	return &platformTimers{
		service:     timer.NewRouter(mem, mem),
		setDispatch: mem.SetDispatch,
		cleanup: func() error {
			mem.Close()
			return nil
		},
	}, nil
}

func initObservability(ctx context.Context) (*observability.Resources, error) {
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "weekly-alarm"
	}

	env := logging.EnvDev
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	return observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:    serviceName,
			Version: Version,
		},
		Environment:   env,
		SamplingRate:  1.0,
		DefaultModule: logging.Module("weekly-alarm"),
	})
}
