package workerpool

import "time"

// MetricsRecorder receives pool instrumentation.
type MetricsRecorder interface {
	SetPoolQueueDepth(depth int)
	SetPoolWorkers(workers int)
	RecordPoolWait(duration time.Duration)
	RecordPoolTask(status string)
}

type nopMetrics struct{}

func (nopMetrics) SetPoolQueueDepth(int)        {}
func (nopMetrics) SetPoolWorkers(int)           {}
func (nopMetrics) RecordPoolWait(time.Duration) {}
func (nopMetrics) RecordPoolTask(string)        {}

const (
	taskStatusCompleted = "completed"
	taskStatusFailed    = "failed"
	taskStatusPanicked  = "panicked"
	taskStatusDiscarded = "discarded"
)
