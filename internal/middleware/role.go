package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
)

// RequireRole aborts with 403 unless the caller holds one of roles. It is a
// coarse gate for whole routes; per-row decisions stay in the services.
// JWTAuth must run first.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFrom(c)
			if !ok {
				return apperr.Unauthorized("No token provided")
			}
			if !allowed[a.Role] {
				return apperr.Forbidden("Insufficient permissions")
			}
			return next(c)
		}
	}
}
