package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initDiagnosticsMetrics() {
	m.diagnosticsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostics_dropped_total",
			Help: "Total number of diagnostics reports dropped by sink",
		},
		[]string{"sink"},
	)
	m.registry.MustRegister(m.diagnosticsDropped)
}

// RecordDiagnosticsDropped records a report a sink could not deliver.
func (m *Manager) RecordDiagnosticsDropped(sink string) {
	if !m.enabled {
		return
	}
	m.diagnosticsDropped.WithLabelValues(sink).Inc()
}
