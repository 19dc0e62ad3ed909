package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger(&buf, "production", level)
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func TestRequestLogger_RecordsRequestFields(t *testing.T) {
	buf := captureLogs(t, "debug")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "req-1")
		return c.Next()
	})
	app.Use(ContextMiddleware())
	app.Use(RequestLogger())
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		c.SetUserContext(WithUserID(c.UserContext(), 42))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Post not found"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/7", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "pulse request", rec["msg"])
	assert.Equal(t, "pulse", rec["service"])
	assert.Equal(t, "/api/posts/:id", rec["route"])
	assert.Equal(t, "/api/posts/7", rec["path"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.EqualValues(t, 42, rec["actor_id"])
	assert.EqualValues(t, 404, rec["status"])
}

func TestRequestLogger_HealthChecksAtDebug(t *testing.T) {
	buf := captureLogs(t, "info")

	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, false},
		{"", false, true},
		{"chatty", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&bytes.Buffer{}, "development", tt.level)
			ctx := context.Background()
			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantInfo, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}
