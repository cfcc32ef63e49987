package signal

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goclaw/slotbus/pkg/diagnostics"
	"github.com/goclaw/slotbus/pkg/workerpool"
)

// DispatchMode says how an invocation reaches its slots.
type DispatchMode string

const (
	// ModeSync runs slots in registration order on the caller's goroutine.
	ModeSync DispatchMode = "sync"
	// ModeAsync hands each slot to the worker pool.
	ModeAsync DispatchMode = "async"
)

// Result is the outcome of one slot in a synchronous invocation.
type Result struct {
	SlotID string
	Value  any
	Err    error
}

// Failed reports whether the slot failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// dispatchMode picks asynchronous dispatch only for void signals with more
// than one slot while async dispatch is enabled.
func (r *Registry) dispatchMode(c Contract, slots int) DispatchMode {
	if r.async.Load() && c.IsVoid() && slots > 1 {
		return ModeAsync
	}
	return ModeSync
}

// Invoke fires the named signal with args.
//
// Synchronous invocations return one Result per slot that ran, in
// registration order; a failing slot never stops the others. Asynchronous
// invocations return nil results as soon as every slot is queued, and their
// failures are only visible through diagnostics.
func (r *Registry) Invoke(ctx context.Context, signalName string, args ...any) ([]Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, &RegistryClosedError{Op: "invoke"}
	}
	e, ok := r.entries[signalName]
	r.mu.RUnlock()
	if !ok {
		return nil, &MissingTargetError{Signal: signalName, Reason: "signal is not registered"}
	}

	if err := e.contract.ValidateArgs(args...); err != nil {
		return nil, err
	}

	slots := e.snapshot()
	mode := r.dispatchMode(e.contract, len(slots))

	ctx, span := r.tracer.Start(ctx, spanSignalInvoke, trace.WithAttributes(
		attribute.String("signal.name", signalName),
		attribute.String("signal.mode", string(mode)),
		attribute.Int("signal.slots", len(slots)),
	))
	defer span.End()

	start := time.Now()
	r.metrics.RecordInvocation(signalName, string(mode))
	defer func() {
		r.metrics.RecordDispatchDuration(ctx, string(mode), time.Since(start))
	}()

	if mode == ModeAsync {
		if err := r.dispatchAsync(ctx, e.contract, slots, args); err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		return nil, nil
	}
	return r.dispatchSync(ctx, e.contract, slots, args), nil
}

func (r *Registry) dispatchSync(ctx context.Context, c Contract, slots []*Binding, args []any) []Result {
	results := make([]Result, 0, len(slots))
	for _, b := range slots {
		value, ran, err := r.runSlot(ctx, c, b, args, ModeSync)
		if !ran {
			continue
		}
		results = append(results, Result{SlotID: b.ID(), Value: value, Err: err})
	}
	return results
}

func (r *Registry) dispatchAsync(ctx context.Context, c Contract, slots []*Binding, args []any) error {
	taskCtx := withoutCallChain(context.WithoutCancel(ctx))
	taskArgs := append([]any(nil), args...)

	for _, b := range slots {
		b := b
		task :=workerpool.NewTaskFunc(b.ID(), b.schedulingPriority(), func(context.Context) error {
			r.runSlot(taskCtx, c, b, taskArgs, ModeAsync)
			return nil
		})
		if err := r.pool.Submit(task); err != nil {
			if workerpool.IsPoolClosedError(err) {
				return &RegistryClosedError{Op: "invoke"}
			}
			// Slots queued before the rejection still run.
			r.report(ctx, c.Name(), b.ID(), ModeAsync, err)
			return fmt.Errorf("failed to queue slot %s: %w", b.ID(), err)
		}
	}
	return nil
}

// runSlot invokes one binding and reports its failure, if any.
func (r *Registry) runSlot(ctx context.Context, c Contract, b *Binding, args []any, mode DispatchMode) (any, bool, error) {
	ctx, span := r.tracer.Start(ctx, spanSignalSlot, trace.WithAttributes(
		attribute.String("signal.name", c.Name()),
		attribute.String("signal.slot_id", b.ID()),
		attribute.String("signal.mode", string(mode)),
	))
	defer span.End()

	value, ran, err := b.invoke(ctx, args)
	if !ran {
		span.SetAttributes(attribute.Bool("signal.slot_skipped", true))
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		r.report(ctx, c.Name(), b.ID(), mode, err)
		return nil, true, err
	}
	return value, true, nil
}

func (r *Registry) report(ctx context.Context, signalName, slotID string, mode DispatchMode, err error) {
	reason := failureReason(err)
	r.metrics.RecordSlotFailure(signalName, string(mode), reason)
	r.diag.Report(ctx, diagnostics.NewReport(signalName, slotID, string(mode), reason, err))
}

// failureReason classifies a slot failure for metrics and diagnostics.
func failureReason(err error) string {
	switch {
	case IsReturnTypeMismatch(err):
		return "return_type_mismatch"
	case IsInvocationFailure(err):
		return "invocation_failure"
	case workerpool.IsQueueFullError(err):
		return "queue_full"
	default:
		return "unknown"
	}
}
