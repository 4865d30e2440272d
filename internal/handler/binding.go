package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/middleware"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/service"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// requestContext bounds the store calls of one request and carries the
// client address for audit records.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := service.WithClientIP(c.Request().Context(), c.RealIP())
	return context.WithTimeout(ctx, requestTimeout)
}

// bind decodes a JSON object body into dst. Unknown fields, trailing data
// and wrong types are all rejected as VALIDATION_ERROR.
func bind(c echo.Context, dst any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperr.Validation("Invalid type for field '" + typeErr.Field + "'")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return apperr.Validation("Unknown field " + field)
		}
		return apperr.Validation("Invalid JSON body")
	}
	if dec.More() {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// pathID reads a UUID path parameter. what names it in the error, e.g.
// "project" yields "Invalid project ID format".
func pathID(c echo.Context, name, what string) (string, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil || len(raw) != 36 {
		return "", apperr.Validation("Invalid " + what + " ID format")
	}
	return id.String(), nil
}

// queryID reads an optional UUID query parameter.
func queryID(c echo.Context, name, what string) (string, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil || len(raw) != 36 {
		return "", apperr.Validation("Invalid " + what + " ID format")
	}
	return id.String(), nil
}

// pageQuery reads ?page= and ?limit=. Absent values are left zero for the
// service defaults.
func pageQuery(c echo.Context) (service.PageRequest, error) {
	var p service.PageRequest
	if s := c.QueryParam("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, apperr.Validation("page must be a positive integer")
		}
		p.Page = n
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > service.MaxPageSize {
			return p, apperr.Validation("limit must be between 1 and 100")
		}
		p.Limit = n
	}
	return p, nil
}

// actor returns the authenticated caller. Routes using it sit behind
// middleware.JWTAuth, so a missing actor means a wiring mistake.
func actor(c echo.Context) (policy.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return policy.Actor{}, apperr.Unauthorized("No token provided")
	}
	return a, nil
}
