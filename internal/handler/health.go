package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything that can report whether a backing service answers:
// *sql.DB via PingContext, a Redis client via a small adapter.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext implements Pinger.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness and, when checks are configured, the state
// of each dependency.
type HealthHandler struct {
	Checks map[string]Pinger
}

// Health handles GET /healthz. It returns 200 with "ok" per dependency, or
// 503 with the first error of each failing one.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	report := echo.Map{"status": "ok"}
	for name, p := range h.Checks {
		if err := p.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			report["status"] = "degraded"
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	return c.JSON(status, report)
}
