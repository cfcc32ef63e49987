package signal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/goclaw/slotbus/pkg/diagnostics"
	"github.com/goclaw/slotbus/pkg/logger"
	"github.com/goclaw/slotbus/pkg/workerpool"
)

// entry is a registered signal and its slots in insertion order. slots is
// replaced, never mutated, so a snapshot stays valid after the lock is
// released.
type entry struct {
	contract Contract

	mu    sync.RWMutex
	slots []*Binding
}

func (e *entry) snapshot() []*Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slots
}

func (e *entry) add(b *Binding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := make([]*Binding, len(e.slots), len(e.slots)+1)
	copy(next, e.slots)
	e.slots = append(next, b)
}

func (e *entry) remove(b *Binding) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.slots {
		if s != b {
			continue
		}
		next := make([]*Binding, 0, len(e.slots)-1)
		next = append(next, e.slots[:i]...)
		e.slots = append(next, e.slots[i+1:]...)
		return true
	}
	return false
}

func (e *entry) len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.slots)
}

// Registry maps signal names to contracts and their slots, and dispatches
// invocations to those slots.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool

	pool    *workerpool.Pool
	poolCfg workerpool.Config
	async   atomic.Bool

	log     logger.Logger
	metrics MetricsRecorder
	diag    diagnostics.Sink
	tracer  trace.Tracer
}

// SlotInfo describes a registered slot.
type SlotInfo struct {
	ID         string `json:"id"`
	Priority   *int   `json:"priority,omitempty"`
	Serialized bool   `json:"serialized,omitempty"`
}

// SignalInfo describes a registered signal.
type SignalInfo struct {
	Name      string     `json:"name"`
	Params    []string   `json:"params"`
	Result    string     `json:"result"`
	SlotCount int        `json:"slot_count"`
	Slots     []SlotInfo `json:"slots,omitempty"`
}

// NewRegistry creates a Registry and starts its worker pool.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]*entry),
		poolCfg: workerpool.DefaultConfig(),
		log:     logger.Named(nil, "signal"),
		metrics: nopMetrics{},
		tracer:  registryTracer(),
	}
	r.async.Store(true)

	for _, opt := range opts {
		opt(r)
	}
	if r.diag == nil {
		r.diag = diagnostics.NewLogSink(r.log, diagnostics.DefaultLogRate, diagnostics.DefaultLogBurst)
	}

	poolOpts := []workerpool.Option{
		workerpool.WithLogger(logger.Named(r.log, "workerpool")),
	}
	if pm, ok := r.metrics.(workerpool.MetricsRecorder); ok {
		poolOpts = append(poolOpts, workerpool.WithMetrics(pm))
	}
	pool, err := workerpool.New(r.poolCfg, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	r.pool = pool

	return r, nil
}

// RegisterSignal declares a signal. params may be nil for a signal without
// parameters; result is Void for a signal that returns nothing.
func (r *Registry) RegisterSignal(name string, params []Type, result Type) (Contract, error) {
	if name == "" {
		return Contract{}, ErrEmptySignalName
	}
	for i, p := range params {
		if p.IsVoid() {
			return Contract{}, fmt.Errorf("signal %q parameter %d: %w", name, i, ErrVoidParameter)
		}
	}

	contract := NewContract(name, params, result)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Contract{}, &RegistryClosedError{Op: "register signal"}
	}
	if _, exists := r.entries[name]; exists {
		r.mu.Unlock()
		r.log.Warn("signal name conflict", "signal", name)
		return Contract{}, &NameConflictError{Signal: name}
	}
	r.entries[name] = &entry{contract: contract}
	r.mu.Unlock()

	r.metrics.RecordRegistration(registrationSignal)
	r.log.Debug("signal registered", "signal", contract.String())
	return contract, nil
}

// UnregisterSignal removes a signal and makes all of its slots unreachable.
// Removing an unknown signal does nothing.
func (r *Registry) UnregisterSignal(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok && !r.closed {
		delete(r.entries, name)
	}
	closed := r.closed
	r.mu.Unlock()

	if closed || !ok {
		r.log.Debug("unregister of unknown signal ignored", "signal", name)
		return
	}

	for _, b := range e.snapshot() {
		b.detached.Store(true)
	}
	r.log.Debug("signal unregistered", "signal", name)
}

// RegisterSlot binds target to the named signal. The declared params and
// result must match the signal contract exactly. On failure the registry is
// left unchanged.
func (r *Registry) RegisterSlot(target Invocable, signalName string, params []Type, result Type, opts ...SlotOption) (*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, &RegistryClosedError{Op: "register slot"}
	}
	e, ok := r.entries[signalName]
	if !ok {
		r.log.Warn("slot registration for unknown signal", "signal", signalName)
		return nil, &MissingTargetError{Signal: signalName, Reason: "signal is not registered"}
	}
	if isNilTarget(target) {
		return nil, &MissingTargetError{Signal: signalName, Reason: "slot target is nil"}
	}
	if err := e.contract.checkSlot(params, result); err != nil {
		r.log.Warn("slot rejected", "signal", signalName, "error", err)
		return nil, err
	}

	b := newBinding(signalName, target, params, result)
	for _, opt := range opts {
		opt(b)
	}
	e.add(b)

	r.metrics.RecordRegistration(registrationSlot)
	r.log.Debug("slot registered", "signal", signalName, "slot", b.id, "priority", b.schedulingPriority().String())
	return b, nil
}

// UnregisterSlot removes a binding from the named signal. Once it returns the
// binding's target is neither running nor started again. Removing a binding
// that is not registered does nothing.
//
// A slot removing itself from inside its own call must use
// UnregisterSlotContext with the context it was called with.
func (r *Registry) UnregisterSlot(b *Binding, signalName string) {
	r.UnregisterSlotContext(context.Background(), b, signalName)
}

// UnregisterSlotContext is UnregisterSlot for callers running inside a slot.
// When ctx belongs to an active call of b, it does not wait for that call.
func (r *Registry) UnregisterSlotContext(ctx context.Context, b *Binding, signalName string) {
	if b == nil {
		return
	}

	r.mu.RLock()
	e, ok := r.entries[signalName]
	removed := ok && !r.closed && e.remove(b)
	r.mu.RUnlock()

	if !removed {
		r.log.Debug("unregister of unknown slot ignored", "signal", signalName, "slot", b.id)
		return
	}

	b.detach(ctx)
	r.log.Debug("slot unregistered", "signal", signalName, "slot", b.id)
}

// Lookup returns the contract of a registered signal.
func (r *Registry) Lookup(name string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Contract{}, false
	}
	return e.contract, true
}

// SlotCount returns the number of slots on a signal, zero if unknown.
func (r *Registry) SlotCount(name string) int {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.len()
}

// Signals returns every registered signal sorted by name.
func (r *Registry) Signals() []SignalInfo {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]SignalInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, describe(e, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Describe returns a signal with its slots.
func (r *Registry) Describe(name string) (SignalInfo, bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return SignalInfo{}, false
	}
	return describe(e, true), true
}

func describe(e *entry, withSlots bool) SignalInfo {
	slots := e.snapshot()
	info := SignalInfo{
		Name:      e.contract.Name(),
		Params:    typeNames(e.contract.params),
		Result:    e.contract.Result().String(),
		SlotCount: len(slots),
	}
	if withSlots {
		info.Slots = make([]SlotInfo, 0, len(slots))
		for _, b := range slots {
			si := SlotInfo{ID: b.ID(), Serialized: b.Serialized()}
			if p, ok := b.Priority(); ok {
				si.Priority = &p
			}
			info.Slots = append(info.Slots, si)
		}
	}
	return info
}

// SetAsyncDispatch toggles asynchronous dispatch at runtime.
func (r *Registry) SetAsyncDispatch(enabled bool) {
	if r.async.Swap(enabled) != enabled {
		r.log.Info("async dispatch changed", "enabled", enabled)
	}
}

// AsyncDispatch reports whether asynchronous dispatch is enabled.
func (r *Registry) AsyncDispatch() bool {
	return r.async.Load()
}

// PoolStats returns the worker pool statistics.
func (r *Registry) PoolStats() workerpool.Stats {
	return r.pool.Stats()
}

// Healthy returns true while the registry accepts work.
func (r *Registry) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.closed && !r.pool.IsClosed()
}

// Shutdown closes the registry: every signal is removed and the worker pool
// stops, draining or discarding queued slots as configured. It waits for
// running slots until ctx expires.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	count := len(r.entries)
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	r.log.Info("shutting down signal registry", "signals", count)
	if err := r.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop worker pool: %w", err)
	}
	return nil
}
