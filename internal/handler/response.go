package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/logger"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// ErrorHandler renders every error returned by a handler or middleware into
// the envelope. Internal causes are logged and never sent to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, "Internal server error"
	var (
		ae *apperr.Error
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ae):
		status = apperr.HTTPStatus(ae.Code)
		if ae.Code == apperr.CodeInternal {
			logger.FromEcho(c).Error("request failed", zap.Error(ae.Cause))
		} else {
			msg = ae.Message
		}
	case errors.As(err, &he):
		status = he.Code
		switch he.Code {
		case http.StatusNotFound:
			msg = "Route not found"
		case http.StatusMethodNotAllowed:
			msg = "Method not allowed"
		default:
			if s, isStr := he.Message.(string); isStr && status < 500 {
				msg = s
			} else if status >= 500 {
				logger.FromEcho(c).Error("request failed", zap.Error(err))
			} else {
				msg = http.StatusText(status)
			}
		}
	default:
		logger.FromEcho(c).Error("request failed", zap.Error(err))
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, envelope{Success: false, Message: msg})
	}
	if werr != nil {
		logger.FromEcho(c).Warn("write error response", zap.Error(werr))
	}
}
