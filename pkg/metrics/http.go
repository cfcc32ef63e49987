package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace      = "slotbus"
	adminSubsystem = "admin_http"
)

// initAdminHTTPMetrics registers the admin API request families. Requests are
// labelled by chi route pattern, not raw path.
func (m *Manager) initAdminHTTPMetrics(cfg Config) {
	m.adminRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: adminSubsystem,
			Name:      "requests_total",
			Help:      "Admin API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	m.adminDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: adminSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Admin API request latency in seconds",
			Buckets:   cfg.HTTPDurationBuckets,
		},
		[]string{"method", "route"},
	)

	m.adminInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: adminSubsystem,
			Name:      "requests_in_flight",
			Help:      "Admin API requests currently being served",
		},
	)

	m.registry.MustRegister(m.adminRequests, m.adminDuration, m.adminInFlight)
}

// RecordHTTPRequest records a served admin API request.
func (m *Manager) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.adminRequests.WithLabelValues(method, route, status).Inc()
	m.adminDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncInFlight marks an admin API request as started.
func (m *Manager) IncInFlight() {
	if !m.enabled {
		return
	}
	m.adminInFlight.Inc()
}

// DecInFlight marks an admin API request as finished.
func (m *Manager) DecInFlight() {
	if !m.enabled {
		return
	}
	m.adminInFlight.Dec()
}
