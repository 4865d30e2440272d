// Package metrics exposes Prometheus counters for HTTP traffic and for the
// authorization events operators care about: cap rejections, failed
// logins and the fate of audit events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build independent instances.
type Metrics struct {
	service string
	reg     *prometheus.Registry

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	limitRejections *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	auditEvents     *prometheus.CounterVec
}

func New(service string) *Metrics {
	m := &Metrics{
		service: service,
		reg:     prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path", "status"}),
		limitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_limit_rejections_total",
			Help: "Creations refused because the tenant reached its subscription cap",
		}, []string{"resource"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_auth_failures_total",
			Help: "Rejected logins and tokens by reason",
		}, []string{"reason"}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_audit_events_total",
			Help: "Audit events by outcome (delivered, dropped, failed)",
		}, []string{"outcome"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.limitRejections, m.authFailures, m.auditEvents,
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.requests.WithLabelValues(m.service, method, path, status).Inc()
			m.duration.WithLabelValues(m.service, method, path, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// The recorders below accept a nil receiver so services can run without
// metrics in tests.

func (m *Metrics) LimitRejected(resource string) {
	if m != nil {
		m.limitRejections.WithLabelValues(resource).Inc()
	}
}

func (m *Metrics) AuthFailed(reason string) {
	if m != nil {
		m.authFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) AuditEvent(outcome string) {
	if m != nil {
		m.auditEvents.WithLabelValues(outcome).Inc()
	}
}
