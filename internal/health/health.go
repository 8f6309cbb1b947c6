package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Status represents the health status of a service or dependency.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the health check result for a single dependency.
type CheckResult struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	Status  Status                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// Dependency is a named probe run by the readiness check.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

func RedisDependency(client *redis.Client) Dependency {
	return Dependency{
		Name: "redis",
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

func PostgresDependency(db *gorm.DB) Dependency {
	return Dependency{
		Name: "postgres",
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get sql.DB: %w", err)
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// Checker performs health checks on service dependencies.
type Checker struct {
	deps    []Dependency
	version string
}

func NewChecker(version string, deps ...Dependency) *Checker {
	return &Checker{
		deps:    deps,
		version: version,
	}
}

// Check performs health checks on all dependencies and returns the overall status.
func (c *Checker) Check(ctx context.Context) *HealthStatus {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := &HealthStatus{
		Status:  StatusHealthy,
		Version: c.version,
		Checks:  make(map[string]CheckResult, len(c.deps)),
	}

	for _, dep := range c.deps {
		start := time.Now()
		if err := dep.Ping(checkCtx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[dep.Name] = CheckResult{
				Status: StatusUnhealthy,
				Error:  err.Error(),
			}
			continue
		}
		status.Checks[dep.Name] = CheckResult{
			Status:    StatusHealthy,
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	return status
}

// LiveHandler returns a Gin handler for liveness probes.
func (c *Checker) LiveHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ReadyHandler returns a Gin handler for readiness probes.
func (c *Checker) ReadyHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := c.Check(ctx.Request.Context())

		httpStatus := http.StatusOK
		if status.Status != StatusHealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		ctx.JSON(httpStatus, status)
	}
}
