package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegisterCORSPolicy(t *testing.T) {
	logger := zerolog.New(io.Discard)
	app := fiber.New()
	Register(app, Config{Logger: &logger, AllowOrigins: "https://portal.example.com"})
	app.Get("/api/v1/hub/activities", func(c *fiber.Ctx) error {
		c.Set("X-Cache-Hit", "true")
		return c.SendStatus(fiber.StatusOK)
	})

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/hub/activities", nil)
	preflight.Header.Set("Origin", "https://portal.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "X-Seed-Token")
	resp, err := app.Test(preflight)
	require.NoError(t, err)
	require.Equal(t, "https://portal.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Seed-Token")
	require.NotContains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/hub/activities", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-Cache-Hit")
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	foreign := httptest.NewRequest(http.MethodGet, "/api/v1/hub/activities", nil)
	foreign.Header.Set("Origin", "https://elsewhere.example.com")
	resp, err = app.Test(foreign)
	require.NoError(t, err)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
