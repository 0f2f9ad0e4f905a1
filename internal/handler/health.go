package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports process liveness and dependency reachability.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Health is used by load balancers. It answers 200 "ok" when the database
// responds and 503 otherwise; Redis is reported but optional.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := echo.Map{"status": "ok", "database": "up"}
	code := http.StatusOK
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			status["status"], status["database"] = "degraded", "down"
			code = http.StatusServiceUnavailable
		}
	}
	switch {
	case h.Redis == nil:
		status["redis"] = "disabled"
	case h.Redis.Ping(ctx).Err() != nil:
		status["redis"] = "down"
	default:
		status["redis"] = "up"
	}
	return c.JSON(code, status)
}
