// Package diagnostics carries slot failures out of the dispatch path.
//
// Failures of asynchronously dispatched slots have no caller to return to, so
// the registry hands every slot failure to a Sink instead. Sinks never block
// dispatch: they log, fan out to in-process subscribers, or publish to Redis
// for external observers.
package diagnostics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Report describes one failed slot invocation.
type Report struct {
	ID         string    `json:"id"`
	Signal     string    `json:"signal"`
	SlotID     string    `json:"slot_id"`
	Mode       string    `json:"mode"`
	Reason     string    `json:"reason"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewReport builds a Report with a fresh ID and the current time.
func NewReport(signal, slotID, mode, reason string, err error) Report {
	r := Report{
		ID:         uuid.NewString(),
		Signal:     signal,
		SlotID:     slotID,
		Mode:       mode,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Sink receives diagnostics reports. Implementations must not block for long
// and must be safe for concurrent use.
type Sink interface {
	Report(ctx context.Context, r Report)
}

// DropRecorder counts reports a sink had to drop.
type DropRecorder interface {
	RecordDiagnosticsDropped(sink string)
}

type nopDrops struct{}

func (nopDrops) RecordDiagnosticsDropped(string) {}

// Discard is a Sink that ignores every report.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(context.Context, Report) {}

type multi []Sink

// Multi returns a Sink that forwards each report to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if m, ok := s.(multi); ok {
			out = append(out, m...)
			continue
		}
		out = append(out, s)
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	}
	return out
}

func (m multi) Report(ctx context.Context, r Report) {
	for _, s := range m {
		s.Report(ctx, r)
	}
}
