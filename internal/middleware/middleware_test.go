package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/config"
	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/utils"
)

const secret = "0123456789abcdef0123456789abcdef"

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(apperr.HTTPStatus(apperr.CodeOf(err)), map[string]any{"success": false, "message": err.Error()})
	}
	return e
}

func whoami(c echo.Context) error {
	a, ok := ActorFrom(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.String(http.StatusOK, a.UserID+"|"+string(a.Role))
}

func TestJWTAuth(t *testing.T) {
	tokens := utils.NewTokenService(secret, time.Hour)
	e := newEcho()
	e.GET("/me", whoami, JWTAuth(tokens, nil))

	tenant := "6f1c2e1a-8d2b-4a55-9d0e-0c1b2a3d4e5f"
	good, err := tokens.Issue("u1", &tenant, model.RoleTenantAdmin)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + good.Token, http.StatusOK, "u1|tenant_admin"},
		{"missing", "", http.StatusUnauthorized, "No token provided"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "No token provided"},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "Invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestJWTAuthExpired(t *testing.T) {
	tokens := utils.NewTokenService(secret, -time.Minute)
	tok, err := tokens.Issue("root", nil, model.RoleSuperAdmin)
	require.NoError(t, err)

	e := newEcho()
	e.GET("/me", whoami, JWTAuth(tokens, nil))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token expired")
}

func TestRequireRole(t *testing.T) {
	tokens := utils.NewTokenService(secret, time.Hour)
	e := newEcho()
	e.GET("/tenants", whoami, JWTAuth(tokens, nil), RequireRole(model.RoleSuperAdmin))

	tenant := "6f1c2e1a-8d2b-4a55-9d0e-0c1b2a3d4e5f"
	admin, _ := tokens.Issue("a1", &tenant, model.RoleTenantAdmin)
	root, _ := tokens.Issue("root", nil, model.RoleSuperAdmin)

	for tok, want := range map[string]int{admin.Token: http.StatusForbidden, root.Token: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	e := newEcho()
	e.Use(RequestID(), logger.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(logger.HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(logger.HeaderRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(logger.HeaderRequestID), 36)
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1,
		RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl",
	}
	e := newEcho()
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RateLimit(cfg, rdb))

	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, hit().Code)
	second := hit()
	assert.Equal(t, http.StatusNoContent, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	blocked := hit()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Contains(t, blocked.Body.String(), `"success":false`)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1,
		RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := newEcho()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RateLimit(cfg, rdb))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
