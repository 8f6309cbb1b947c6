package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	snoozeMinutesEnv        = "ALARM_SNOOZE_MINUTES"
	exactAllowedEnv         = "ALARM_EXACT_ALLOWED"
	inexactWindowSecondsEnv = "ALARM_INEXACT_WINDOW_SECONDS"
	pollIntervalSecondsEnv  = "ALARM_POLL_INTERVAL_SECONDS"
	rescheduleOnStartEnv    = "ALARM_RESCHEDULE_ON_START"

	defaultSnoozeMinutes        = 10
	defaultInexactWindowSeconds = 300
	defaultPollIntervalSeconds  = 15
)

type AlarmConfig struct {
	SnoozeDelay       time.Duration
	ExactAllowed      bool
	InexactWindow     time.Duration
	PollInterval      time.Duration
	RescheduleOnStart bool
}

func LoadAlarmConfig() (*AlarmConfig, error) {
	exactAllowed, err := boolEnv(exactAllowedEnv, true)
	if err != nil {
		return nil, err
	}

	rescheduleOnStart, err := boolEnv(rescheduleOnStartEnv, true)
	if err != nil {
		return nil, err
	}

	return &AlarmConfig{
		SnoozeDelay:       time.Duration(positiveIntEnv(snoozeMinutesEnv, defaultSnoozeMinutes)) * time.Minute,
		ExactAllowed:      exactAllowed,
		InexactWindow:     time.Duration(positiveIntEnv(inexactWindowSecondsEnv, defaultInexactWindowSeconds)) * time.Second,
		PollInterval:      time.Duration(positiveIntEnv(pollIntervalSecondsEnv, defaultPollIntervalSeconds)) * time.Second,
		RescheduleOnStart: rescheduleOnStart,
	}, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, ErrInvalidBool)
	}
	return v, nil
}
