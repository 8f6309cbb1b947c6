package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Module names the logical component emitting a log line.
type Module string

type ServiceInfo struct {
	Name     string
	Version  string
	Revision string
}

type Config struct {
	ServiceInfo   ServiceInfo
	Environment   Environment
	GCPProjectID  string
	DefaultModule Module
	Level         slog.Leveler
	Writer        io.Writer
}

// NewLogger builds the JSON logger used by every package through slog.Default.
func NewLogger(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	level := cfg.Level
	if level == nil {
		level = ParseLevel(os.Getenv("LOG_LEVEL"))
	}

	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	attrs := []slog.Attr{
		slog.Group("service",
			slog.String("name", cfg.ServiceInfo.Name),
			slog.String("version", cfg.ServiceInfo.Version),
			slog.String("revision", cfg.ServiceInfo.Revision),
		),
		slog.String("env", string(cfg.Environment)),
	}
	if cfg.DefaultModule != "" {
		attrs = append(attrs, slog.String("module", string(cfg.DefaultModule)))
	}

	return slog.New(&contextHandler{
		Handler:   base.WithAttrs(attrs),
		projectID: cfg.GCPProjectID,
	})
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr renames level to severity for Cloud Logging.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		a.Key = "severity"
	}
	if a.Key == slog.MessageKey {
		a.Key = "message"
	}
	return a
}

// contextHandler adds request id and trace attributes carried by the context.
type contextHandler struct {
	slog.Handler
	projectID string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := RequestIDFromContext(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
		r.AddAttrs(gcpTraceAttrs(ctx, h.projectID)...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), projectID: h.projectID}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), projectID: h.projectID}
}
