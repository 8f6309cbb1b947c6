package main

import (
	"log/slog"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/config"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/notify"
)

func initSink(cfg *config.NotifyConfig) notify.Sink {
	var sinks []notify.Sink
	for _, kind := range cfg.Sinks {
		switch kind {
		case config.SinkLog:
			sinks = append(sinks, notify.NewLogSink())
		case config.SinkPush:
			sinks = append(sinks, notify.NewPushClient(notify.PushConfig{
				BaseURL:    cfg.PushURL,
				MaxRetries: cfg.MaxRetries,
			}))
		case config.SinkEmail:
			sinks = append(sinks, notify.NewEmailSink(notify.EmailConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.FromEmail,
				FromName:  cfg.FromName,
				ToEmail:   cfg.ToEmail,
			}))
		}
	}

	if len(sinks) == 0 {
		slog.Warn("no notification sink configured, falling back to log")
		return notify.NewLogSink()
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return notify.Fanout(sinks...)
}
