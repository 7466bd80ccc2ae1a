package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type SystemHandler struct {
	DB          Pinger
	Version     string
	Environment string
}

func (h *SystemHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to Vividly API",
		"version": h.Version,
	})
}

func (h *SystemHandler) Health(c echo.Context) error {
	status := http.StatusOK
	health := "healthy"
	database := "ok"
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			health = "unhealthy"
			database = "unavailable"
		}
	}
	return c.JSON(status, map[string]string{
		"status":      health,
		"database":    database,
		"environment": h.Environment,
		"version":     h.Version,
	})
}
