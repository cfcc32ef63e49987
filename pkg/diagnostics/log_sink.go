package diagnostics

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/goclaw/slotbus/pkg/logger"
)

// Default LogSink limits.
const (
	DefaultLogRate  = 20
	DefaultLogBurst = 50
)

// LogSink writes reports to a logger, rate limited so that a storm of failing
// slots cannot flood the log.
type LogSink struct {
	log     logger.Logger
	limiter *rate.Limiter
	drops   DropRecorder
	dropped atomic.Int64
}

// LogSinkOption configures a LogSink.
type LogSinkOption func(*LogSink)

// WithLogDropRecorder counts reports dropped by the limiter.
func WithLogDropRecorder(r DropRecorder) LogSinkOption {
	return func(s *LogSink) {
		if r != nil {
			s.drops = r
		}
	}
}

// NewLogSink creates a LogSink allowing perSecond reports with the given burst.
// A non-positive perSecond disables rate limiting.
func NewLogSink(log logger.Logger, perSecond float64, burst int, opts ...LogSinkOption) *LogSink {
	if log == nil {
		log = logger.Global()
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	s := &LogSink{
		log:     log,
		limiter: rate.NewLimiter(limit, burst),
		drops:   nopDrops{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report implements Sink.
func (s *LogSink) Report(ctx context.Context, r Report) {
	if !s.limiter.Allow() {
		s.dropped.Add(1)
		s.drops.RecordDiagnosticsDropped("log")
		return
	}
	s.log.WarnContext(ctx, "slot invocation failed",
		"report_id", r.ID,
		"signal", r.Signal,
		"slot", r.SlotID,
		"mode", r.Mode,
		"reason", r.Reason,
		"error", r.Error,
	)
}

// Dropped returns how many reports were suppressed by the limiter.
func (s *LogSink) Dropped() int64 {
	return s.dropped.Load()
}
