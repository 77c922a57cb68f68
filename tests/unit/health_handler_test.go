package unit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/cks-portal-api/internal/config"
	"github.com/noah-isme/cks-portal-api/internal/handler"
)

type response struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
	Details handler.HealthResponse `json:"details"`
}

func healthApp(checks ...handler.DependencyCheck) (*fiber.App, config.Config) {
	cfg := config.Config{
		AppName: "CKS Portal API",
		AppEnv:  "test",
	}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, checks...))
	return app, cfg
}

func TestHealthCheck(t *testing.T) {
	app, cfg := healthApp()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload response
	err = json.NewDecoder(resp.Body).Decode(&payload)
	assert.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.Equal(t, cfg.AppName, payload.Data.Service)
	assert.Equal(t, cfg.AppEnv, payload.Data.Environment)
	assert.Empty(t, payload.Data.Dependencies)
	assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}

func TestHealthCheckReportsDependencies(t *testing.T) {
	healthy := func(ctx context.Context) error { return nil }

	app, _ := healthApp(handler.DependencyCheck{Name: "postgres", Ping: healthy}, handler.DependencyCheck{Name: "redis", Ping: healthy})
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload response
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, payload.Data.Dependencies)
}

func TestHealthCheckDegradesOnFailedDependency(t *testing.T) {
	var deadline bool
	app, _ := healthApp(
		handler.DependencyCheck{Name: "postgres", Ping: func(ctx context.Context) error {
			_, deadline = ctx.Deadline()
			return nil
		}},
		handler.DependencyCheck{Name: "redis", Ping: func(ctx context.Context) error { return errors.New("connection refused") }},
	)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.True(t, deadline)

	var payload response
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.False(t, payload.Success)
	assert.Equal(t, "degraded", payload.Details.Status)
	assert.Equal(t, "ok", payload.Details.Dependencies["postgres"])
	assert.Equal(t, "unavailable", payload.Details.Dependencies["redis"])
}
