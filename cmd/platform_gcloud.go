//go:build gcloud

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/config"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/timer"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
)

// The delay queue and the Cloud Tasks index both live in Redis.
const platformNeedsRedis = true

func loadEnv() {}

func initTimers(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*platformTimers, error) {
	cloudTasks, err := timer.NewCloudTasksService(ctx, timer.CloudTasksConfig{
		ProjectID:           cfg.TaskQueue.GCloudProjectID,
		LocationID:          cfg.TaskQueue.GCloudLocationID,
		QueueID:             cfg.TaskQueue.GCloudQueueID,
		TargetURL:           cfg.TaskQueue.GCloudTargetURL,
		ServiceAccountEmail: cfg.TaskQueue.GCloudServiceAccountMail,
		MaxRetries:          cfg.TaskQueue.MaxRetries,
	}, redisClient)
	if err != nil {
		return nil, err
	}

	queue := timer.NewRedisDelayQueue(redisClient, nil, timer.RedisQueueConfig{
		PollInterval: cfg.Alarm.PollInterval,
	})

	slog.Info("timer service initialized",
		slog.String("type", "cloud_tasks+redis_queue"),
		slog.String("project", cfg.TaskQueue.GCloudProjectID),
		slog.String("location", cfg.TaskQueue.GCloudLocationID),
		slog.String("queue", cfg.TaskQueue.GCloudQueueID),
		slog.Duration("poll_interval", cfg.Alarm.PollInterval),
	)

	var exact timer.Service = cloudTasks
	if !cfg.Alarm.ExactAllowed {
		exact = deniedExact{}
	}

	return &platformTimers{
		service:     timer.NewRouter(exact, queue),
		setDispatch: queue.SetDispatch,
		run:         queue.Run,
		cleanup: func() error {
			if err := cloudTasks.Close(); err != nil {
				slog.Warn("failed to close cloud tasks client", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}, nil
}

// deniedExact refuses every exact registration so the scheduler falls back
// to the delay queue.
type deniedExact struct{}

func (deniedExact) Register(context.Context, timer.Registration) error {
	return timer.ErrRegistrationDenied
}

func (deniedExact) Cancel(context.Context, string) error {
	return nil
}

func initObservability(ctx context.Context) (*observability.Resources, error) {
	serviceName := os.Getenv("K_SERVICE")
	if serviceName == "" {
		serviceName = "weekly-alarm"
	}

	env := logging.EnvProd
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GCLOUD_PROJECT_ID")
	}
	if projectID == "" {
		return nil, errors.New("GOOGLE_CLOUD_PROJECT or GCLOUD_PROJECT_ID is required")
	}

	return observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: os.Getenv("K_REVISION"),
		},
		Environment:   env,
		GCPProjectID:  projectID,
		SamplingRate:  1.0,
		DefaultModule: logging.Module("weekly-alarm"),
	})
}
