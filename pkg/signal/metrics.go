package signal

import (
	"context"
	"time"
)

// MetricsRecorder defines metrics hooks for registry operations.
type MetricsRecorder interface {
	RecordRegistration(kind string)
	RecordInvocation(signal string, mode string)
	RecordSlotFailure(signal string, mode string, reason string)
	RecordDispatchDuration(ctx context.Context, mode string, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordRegistration(string)                                     {}
func (nopMetrics) RecordInvocation(string, string)                               {}
func (nopMetrics) RecordSlotFailure(string, string, string)                      {}
func (nopMetrics) RecordDispatchDuration(context.Context, string, time.Duration) {}

const (
	registrationSignal = "signal"
	registrationSlot   = "slot"
)
