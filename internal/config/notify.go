package config

import (
	"fmt"
	"os"
	"strings"
)

type NotifySinkKind string

const (
	SinkLog   NotifySinkKind = "log"
	SinkPush  NotifySinkKind = "push"
	SinkEmail NotifySinkKind = "email"
)

type NotifyConfig struct {
	Sinks      []NotifySinkKind
	PushURL    string
	MaxRetries int

	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ToEmail        string
}

func LoadNotifyConfig() (*NotifyConfig, error) {
	raw := os.Getenv("NOTIFY_SINKS")
	if raw == "" {
		raw = string(SinkLog)
	}

	var sinks []NotifySinkKind
	for _, part := range strings.Split(raw, ",") {
		kind := NotifySinkKind(strings.ToLower(strings.TrimSpace(part)))
		switch kind {
		case "":
			continue
		case SinkLog, SinkPush, SinkEmail:
			sinks = append(sinks, kind)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownNotifySink, part)
		}
	}

	fromName := os.Getenv("SENDGRID_FROM_NAME")
	if fromName == "" {
		fromName = "Weekly Alarm"
	}

	return &NotifyConfig{
		Sinks:      sinks,
		PushURL:    os.Getenv("NOTIFY_PUSH_URL"),
		MaxRetries: positiveIntEnv("NOTIFY_MAX_RETRIES", 3),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		FromEmail:      os.Getenv("SENDGRID_FROM_EMAIL"),
		FromName:       fromName,
		ToEmail:        os.Getenv("NOTIFY_EMAIL_TO"),
	}, nil
}

func (c *NotifyConfig) Has(kind NotifySinkKind) bool {
	for _, s := range c.Sinks {
		if s == kind {
			return true
		}
	}
	return false
}

func (c *NotifyConfig) Validate() error {
	if c.Has(SinkPush) && c.PushURL == "" {
		return ErrPushURLMissing
	}
	if c.Has(SinkEmail) && (c.SendGridAPIKey == "" || c.FromEmail == "" || c.ToEmail == "") {
		return ErrEmailConfigMissing
	}
	return nil
}
