package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
)

type Config struct {
	Port      string
	LogLevel  slog.Level
	TaskQueue TaskQueueConfig
	Redis     *RedisConfig
	Store     *StoreConfig
	Alarm     *AlarmConfig
	Notify    *NotifyConfig
}

type TaskQueueConfig struct {
	GCloudProjectID          string
	GCloudLocationID         string
	GCloudQueueID            string
	GCloudTargetURL          string
	GCloudServiceAccountMail string

	MaxRetries int
}

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, err
	}

	alarmConfig, err := LoadAlarmConfig()
	if err != nil {
		return nil, err
	}

	notifyConfig, err := LoadNotifyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     port,
		LogLevel: logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		TaskQueue: TaskQueueConfig{
			GCloudProjectID:          os.Getenv("GCLOUD_PROJECT_ID"),
			GCloudLocationID:         os.Getenv("GCLOUD_LOCATION_ID"),
			GCloudQueueID:            os.Getenv("GCLOUD_QUEUE_ID"),
			GCloudTargetURL:          os.Getenv("GCLOUD_TARGET_URL"),
			GCloudServiceAccountMail: os.Getenv("GCLOUD_SERVICE_ACCOUNT_EMAIL"),

			MaxRetries: positiveIntEnv("TASK_QUEUE_MAX_RETRIES", 3),
		},
		Redis:  redisConfig,
		Store:  LoadStoreConfig(),
		Alarm:  alarmConfig,
		Notify: notifyConfig,
	}, nil
}

// positiveIntEnv falls back to def when the variable is unset, malformed or
// not positive.
func positiveIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
