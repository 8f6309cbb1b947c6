package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/grpchealth"
	"github.com/gin-gonic/gin"
)

func TestReadyHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := Dependency{Name: "redis", Ping: func(context.Context) error { return nil }}
	down := Dependency{Name: "postgres", Ping: func(context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus int
		wantHealth Status
	}{
		{name: "all healthy", deps: []Dependency{ok}, wantStatus: http.StatusOK, wantHealth: StatusHealthy},
		{name: "one dependency down", deps: []Dependency{ok, down}, wantStatus: http.StatusServiceUnavailable, wantHealth: StatusUnhealthy},
		{name: "no dependencies", wantStatus: http.StatusOK, wantHealth: StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health/ready", NewChecker("v1", tt.deps...).ReadyHandler())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var body HealthStatus
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantHealth {
				t.Errorf("health = %q, want %q", body.Status, tt.wantHealth)
			}
			if body.Version != "v1" {
				t.Errorf("version = %q, want v1", body.Version)
			}
			if len(body.Checks) != len(tt.deps) {
				t.Errorf("checks = %v, want %d entries", body.Checks, len(tt.deps))
			}
		})
	}
}

func TestGRPCChecker(t *testing.T) {
	ok := Dependency{Name: "redis", Ping: func(context.Context) error { return nil }}
	down := Dependency{Name: "redis", Ping: func(context.Context) error { return errors.New("timeout") }}

	tests := []struct {
		name    string
		deps    []Dependency
		service string
		want    grpchealth.Status
	}{
		{name: "server wide serving", deps: []Dependency{ok}, want: grpchealth.StatusServing},
		{name: "named service serving", deps: []Dependency{ok}, service: "weekly-alarm", want: grpchealth.StatusServing},
		{name: "dependency down", deps: []Dependency{down}, want: grpchealth.StatusNotServing},
		{name: "unknown service", deps: []Dependency{ok}, service: "other", want: grpchealth.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGRPCChecker(NewChecker("v1", tt.deps...), "weekly-alarm")
			resp, err := g.Check(context.Background(), &grpchealth.CheckRequest{Service: tt.service})
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("status = %v, want %v", resp.Status, tt.want)
			}
		})
	}
}
