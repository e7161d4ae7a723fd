package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospital_http_requests_total",
			Help: "HTTP requests handled, by service, route and status.",
		},
		[]string{"service", "method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hospital_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)
)

// Tenant routing
var (
	TenantResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospital_tenant_resolutions_total",
			Help: "Tenant connection resolutions, by connection name and outcome.",
		},
		[]string{"connection", "outcome"},
	)

	FanOutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hospital_fanout_duration_seconds",
			Help:    "Duration of cross-tenant fan-out operations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

// Cross-service checks
var (
	CrossChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospital_crosscheck_total",
			Help: "Existence checks against sibling services, by entity and outcome (found, not_found, unavailable).",
		},
		[]string{"entity", "outcome"},
	)

	ReportPlaceholders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospital_report_placeholders_total",
			Help: "Report rows rendered with a placeholder because a lookup failed.",
		},
		[]string{"kind"},
	)
)

// Handler exposes the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
