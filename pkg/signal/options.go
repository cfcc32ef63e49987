package signal

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/goclaw/slotbus/pkg/diagnostics"
	"github.com/goclaw/slotbus/pkg/logger"
	"github.com/goclaw/slotbus/pkg/workerpool"
)

// Option is a functional option for configuring the Registry.
type Option func(*Registry)

// WithPoolConfig sets the worker pool configuration used for asynchronous
// dispatch.
func WithPoolConfig(cfg workerpool.Config) Option {
	return func(r *Registry) {
		r.poolCfg = cfg
	}
}

// WithAsyncDispatch enables or disables asynchronous dispatch. When disabled
// every invocation runs synchronously.
func WithAsyncDispatch(enabled bool) Option {
	return func(r *Registry) {
		r.async.Store(enabled)
	}
}

// WithLogger sets the logger for the registry.
func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics sets the metrics recorder for the registry. A recorder that
// also implements workerpool.MetricsRecorder instruments the pool as well.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(r *Registry) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// WithDiagnostics sets the sink receiving slot failures.
func WithDiagnostics(sink diagnostics.Sink) Option {
	return func(r *Registry) {
		if sink != nil {
			r.diag = sink
		}
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}
