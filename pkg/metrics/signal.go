package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initSignalMetrics(cfg Config) {
	m.signalRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_registered_total",
			Help: "Total number of signal and slot registrations",
		},
		[]string{"kind"},
	)

	m.signalInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_invocations_total",
			Help: "Total number of signal invocations by dispatch mode",
		},
		[]string{"signal", "mode"},
	)

	m.signalSlotFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_slot_failures_total",
			Help: "Total number of failed slot invocations",
		},
		[]string{"signal", "mode", "reason"},
	)

	m.signalDispatch = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_dispatch_duration_seconds",
			Help:    "Time spent in Invoke, including synchronous slots",
			Buckets: cfg.DispatchDurationBuckets,
		},
		[]string{"mode"},
	)

	m.registry.MustRegister(m.signalRegistrations)
	m.registry.MustRegister(m.signalInvocations)
	m.registry.MustRegister(m.signalSlotFailures)
	m.registry.MustRegister(m.signalDispatch)
}

// RecordRegistration records a signal or slot registration.
func (m *Manager) RecordRegistration(kind string) {
	if !m.enabled {
		return
	}
	m.signalRegistrations.WithLabelValues(kind).Inc()
}

// RecordInvocation records a signal invocation.
func (m *Manager) RecordInvocation(signal string, mode string) {
	if !m.enabled {
		return
	}
	m.signalInvocations.WithLabelValues(signal, mode).Inc()
}

// RecordSlotFailure records a failed slot invocation.
func (m *Manager) RecordSlotFailure(signal string, mode string, reason string) {
	if !m.enabled {
		return
	}
	m.signalSlotFailures.WithLabelValues(signal, mode, reason).Inc()
}

// RecordDispatchDuration records how long an invocation took. The current
// trace, if any, is attached as an exemplar.
func (m *Manager) RecordDispatchDuration(ctx context.Context, mode string, duration time.Duration) {
	if !m.enabled {
		return
	}
	observer := m.signalDispatch.WithLabelValues(mode)
	if labels, ok := traceExemplarLabels(ctx); ok {
		if eo, ok := observer.(prometheus.ExemplarObserver); ok {
			eo.ObserveWithExemplar(duration.Seconds(), labels)
			return
		}
	}
	observer.Observe(duration.Seconds())
}
