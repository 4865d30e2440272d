package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/metrics"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the resulting
// policy.Actor on the context. Every failure is a 401 in the standard
// envelope; the token itself is never logged.
func JWTAuth(tokens *utils.TokenService, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				m.AuthFailed("missing_token")
				return apperr.Unauthorized("No token provided")
			}

			claims, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					m.AuthFailed("expired_token")
					return apperr.Unauthorized("Token expired")
				}
				m.AuthFailed("invalid_token")
				logger.FromEcho(c).Debug("token rejected", zap.Error(err))
				return apperr.Unauthorized("Invalid token")
			}

			SetActor(c, policy.Actor{UserID: claims.UserID, TenantID: claims.TenantID, Role: claims.Role})
			return next(c)
		}
	}
}
