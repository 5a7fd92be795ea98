package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	DB *sql.DB
}

// Root confirms the API is up.
func (h *HealthHandler) Root(c echo.Context) error {
	return okMessage(c, http.StatusOK, "Restaurant API is running", nil)
}

// Healthz also pings the database; an unreachable database answers 503.
func (h *HealthHandler) Healthz(c echo.Context) error {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "message": "database unreachable", "error": err.Error()})
		}
	}
	return ok(c, http.StatusOK, echo.Map{"status": "ok"})
}
