package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/logger"
)

// RequestID propagates an incoming X-Request-ID or assigns a fresh one, and
// echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(logger.HeaderRequestID)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
				c.Request().Header.Set(logger.HeaderRequestID, id)
			}
			c.Response().Header().Set(logger.HeaderRequestID, id)
			return next(c)
		}
	}
}
