package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	m := New("taskhub")
	m.LimitRejected("project")
	m.LimitRejected("project")
	m.AuthFailed("bad_credentials")
	m.AuditEvent("dropped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.limitRejections.WithLabelValues("project")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authFailures.WithLabelValues("bad_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditEvents.WithLabelValues("dropped")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LimitRejected("user")
		m.AuthFailed("expired")
		m.AuditEvent("delivered")
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New("taskhub")
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/api/ping",service="taskhub",status="204"} 1`)
}
