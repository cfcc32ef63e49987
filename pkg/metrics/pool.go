package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initPoolMetrics initializes worker pool metrics.
func (m *Manager) initPoolMetrics(cfg Config) {
	m.poolQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workerpool_queue_depth",
			Help: "Current number of queued slot tasks",
		},
	)

	m.poolWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workerpool_workers",
			Help: "Current number of worker goroutines",
		},
	)

	m.poolWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workerpool_wait_duration_seconds",
			Help:    "Time tasks spend waiting in queue",
			Buckets: cfg.PoolWaitBuckets,
		},
	)

	m.poolTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workerpool_tasks_total",
			Help: "Total number of pool tasks by outcome",
		},
		[]string{"status"},
	)

	m.registry.MustRegister(m.poolQueueDepth)
	m.registry.MustRegister(m.poolWorkers)
	m.registry.MustRegister(m.poolWaitDuration)
	m.registry.MustRegister(m.poolTasks)
}

// SetPoolQueueDepth sets the current queue depth.
func (m *Manager) SetPoolQueueDepth(depth int) {
	if !m.enabled {
		return
	}
	m.poolQueueDepth.Set(float64(depth))
}

// SetPoolWorkers sets the current worker count.
func (m *Manager) SetPoolWorkers(workers int) {
	if !m.enabled {
		return
	}
	m.poolWorkers.Set(float64(workers))
}

// RecordPoolWait records the time a task spent waiting in queue.
func (m *Manager) RecordPoolWait(duration time.Duration) {
	if !m.enabled {
		return
	}
	m.poolWaitDuration.Observe(duration.Seconds())
}

// RecordPoolTask records a finished, failed or discarded task.
func (m *Manager) RecordPoolTask(status string) {
	if !m.enabled {
		return
	}
	m.poolTasks.WithLabelValues(status).Inc()
}
