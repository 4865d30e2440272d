package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/logger"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports whether the database answers. It is used by load balancers,
// so a down database is a 503 rather than an error envelope.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.FromEcho(c).Warn("health check: database unreachable", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, healthStatus{Status: "error", Database: "disconnected"})
		}
		return ok(c, http.StatusOK, "", healthStatus{Status: "ok", Database: "connected"})
	}
}
