package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/grpchealth"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/config"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/handler"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/health"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/firerecorder"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/timer"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/logging"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/metrics"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/observability/middleware"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/alarm"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/fire"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/nextfire"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/reminder"
)

// Version is set via ldflags at build time
var Version = "dev"

// platformTimers is what each platform build hands back from initTimers.
type platformTimers struct {
	service     timer.Service
	setDispatch func(timer.DispatchFunc)
	// run is the background loop of a polling backend, if any.
	run     func(ctx context.Context) error
	cleanup func() error
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadEnv()

	obs, err := initObservability(ctx)
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.SetDefault(obs.Logger())

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	if err := config.ValidateForRun(cfg); err != nil {
		slog.Error("configuration validation error", slog.String("error", err.Error()))
		return 1
	}

	if err := cfg.TaskQueue.Validate(); err != nil {
		slog.Error("task queue configuration error", slog.String("error", err.Error()))
		return 1
	}

	httpMetrics, err := metrics.NewHTTPMetrics()
	if err != nil {
		slog.Error("failed to initialize HTTP metrics", slog.String("error", err.Error()))
		return 1
	}

	alarmMetrics, err := metrics.NewAlarmMetrics()
	if err != nil {
		slog.Error("failed to initialize alarm metrics", slog.String("error", err.Error()))
		return 1
	}

	// InfluxDB locally, BigQuery on gcloud
	fireRecorder, err := firerecorder.NewRecorder(ctx, firerecorder.LoadConfig())
	if err != nil {
		slog.Error("failed to initialize fire recorder", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := fireRecorder.Close(); err != nil {
			slog.Warn("failed to close fire recorder", slog.String("error", err.Error()))
		}
	}()

	var redisClient *redis.Client
	var healthDeps []health.Dependency
	if platformNeedsRedis || cfg.Store.Backend == config.StoreRedis {
		redisClient, err = connectRedis(ctx, cfg.Redis)
		if err != nil {
			return 1
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Warn("failed to close redis client", slog.String("error", err.Error()))
			}
		}()
		healthDeps = append(healthDeps, health.RedisDependency(redisClient))
	}

	reminderRepo, storeDeps, storeCleanup, err := initStore(ctx, cfg, redisClient)
	if err != nil {
		slog.Error("failed to initialize reminder store", slog.String("error", err.Error()))
		return 1
	}
	if storeCleanup != nil {
		defer func() {
			if err := storeCleanup(); err != nil {
				slog.Warn("reminder store cleanup error", slog.String("error", err.Error()))
			}
		}()
	}
	healthDeps = append(healthDeps, storeDeps...)

	timers, err := initTimers(ctx, cfg, redisClient)
	if err != nil {
		slog.Error("failed to initialize timer service", slog.String("error", err.Error()))
		return 1
	}
	if timers.cleanup != nil {
		defer func() {
			if err := timers.cleanup(); err != nil {
				slog.Error("timer service cleanup error", slog.String("error", err.Error()))
			}
		}()
	}

	sink := initSink(cfg.Notify)

	scheduler := alarm.NewScheduler(
		timers.service,
		nextfire.NewCalculator(nil),
		alarm.Config{SnoozeDelay: cfg.Alarm.SnoozeDelay},
		alarmMetrics,
	)
	fireHandler := fire.NewHandler(reminderRepo, scheduler, sink, fireRecorder, alarmMetrics)
	timers.setDispatch(fireHandler.Dispatch)

	reminderService := reminder.NewService(reminderRepo, scheduler, sink)

	if timers.run != nil {
		go func() {
			if err := timers.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("timer loop stopped", slog.String("error", err.Error()))
			}
		}()
	}

	if cfg.Alarm.RescheduleOnStart {
		report, err := reminderService.RescheduleAll(ctx)
		if err != nil {
			slog.Error("startup reschedule failed",
				slog.String("event", "alarm.reschedule.startup.fail"),
				slog.String("error", err.Error()),
			)
		} else if len(report.Failures) > 0 {
			slog.Warn("startup reschedule completed with failures",
				slog.Int("scheduled", report.Scheduled),
				slog.Int("failed", len(report.Failures)),
			)
		}
	}

	r := gin.New()
	r.Use(middleware.Gin(middleware.GinConfig{
		SkipPaths:  []string{"/health", "/health/live", "/health/ready"},
		Module:     logging.Module("weekly-alarm"),
		Worker:     true,
		TracerName: "github.com/KasumiMercury/primind-weekly-alarm/internal/observability/middleware",
		JobNameResolver: func(c *gin.Context) string {
			if taskName := c.GetHeader("X-CloudTasks-TaskName"); taskName != "" {
				return taskName
			}
			return c.Request.URL.Path
		},
		HTTPMetrics: httpMetrics,
	}))
	r.Use(middleware.PanicRecoveryGin())

	healthChecker := health.NewChecker(Version, healthDeps...)
	r.GET("/health/live", healthChecker.LiveHandler())
	r.GET("/health/ready", healthChecker.ReadyHandler())
	r.GET("/health", healthChecker.ReadyHandler())

	grpcHealthPath, grpcHealthHandler := grpchealth.NewHandler(health.NewGRPCChecker(healthChecker, "weekly-alarm"))
	r.POST(grpcHealthPath+"*method", gin.WrapH(grpcHealthHandler))

	v1 := r.Group("/api/v1")
	handler.NewReminderHandler(reminderService).Register(v1)
	handler.NewAlarmHandler(fireHandler, reminderService).Register(v1)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		// h2c lets gRPC health probes reach the same listener without TLS.
		Handler: h2c.NewHandler(r, &http2.Server{}),
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Port),
			slog.String("store", string(cfg.Store.Backend)),
			slog.Duration("snooze_delay", cfg.Alarm.SnoozeDelay),
			slog.Bool("exact_allowed", cfg.Alarm.ExactAllowed),
		)
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
			return 1
		}

		slog.Info("server exited properly")
		return 0

	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		slog.Error("server exited with error", slog.String("error", err.Error()))
		return 1
	}
}

func connectRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(cfg.Options())

	if err := redisotel.InstrumentTracing(client); err != nil {
		slog.Error("failed to instrument redis tracing",
			slog.String("event", "redis.otel.tracing.fail"),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := redisotel.InstrumentMetrics(client); err != nil {
		slog.Error("failed to instrument redis metrics",
			slog.String("event", "redis.otel.metrics.fail"),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis",
			slog.String("event", "redis.connect.fail"),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	slog.Info("redis connected", slog.String("addr", cfg.Addr))
	return client, nil
}
