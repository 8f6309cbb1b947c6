package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/metrics"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/tracing"
)

const requestIDHeader = "x-request-id"

type GinConfig struct {
	SkipPaths  []string
	Module     logging.Module
	TracerName string
	// Worker marks requests sent by a queue rather than a user; the job
	// name is then logged with every access line.
	Worker          bool
	JobNameResolver func(c *gin.Context) string
	HTTPMetrics     *metrics.HTTPMetrics
}

// Gin starts a server span, propagates the request id and writes one access
// log line per request.
func Gin(cfg GinConfig) gin.HandlerFunc {
	tracer := otel.Tracer(cfg.TracerName)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.Contains(cfg.SkipPaths, path) {
			c.Next()
			return
		}

		start := time.Now()
		ctx := tracing.ExtractFromHTTPRequest(c.Request.Context(), c.Request)

		requestID := logging.ValidateAndExtractRequestID(c.GetHeader(requestIDHeader))
		ctx = logging.WithRequestID(ctx, requestID)
		c.Header(requestIDHeader, requestID)

		route := c.FullPath()
		if route == "" {
			route = path
		}

		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		cfg.HTTPMetrics.RecordRequest(ctx, c.Request.Method, route, status, elapsed)

		attrs := []any{
			slog.String("event", "http.request"),
			slog.String("module", string(cfg.Module)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
		}
		if cfg.Worker && cfg.JobNameResolver != nil {
			attrs = append(attrs, slog.String("job", cfg.JobNameResolver(c)))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			slog.ErrorContext(ctx, "request completed", attrs...)
		case status >= http.StatusBadRequest:
			slog.WarnContext(ctx, "request completed", attrs...)
		default:
			slog.InfoContext(ctx, "request completed", attrs...)
		}
	}
}

// PanicRecoveryGin turns a handler panic into a logged 500.
func PanicRecoveryGin() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(c.Request.Context(), "panic recovered",
					slog.String("event", "http.panic"),
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
