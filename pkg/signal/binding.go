package signal

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goclaw/slotbus/pkg/workerpool"
)

// Invocable is a slot target. args has already been validated against the
// signal contract. A non-nil error marks the invocation as failed.
type Invocable interface {
	Call(ctx context.Context, args []any) (any, error)
}

// Func adapts a function to Invocable.
type Func func(ctx context.Context, args []any) (any, error)

// Call implements Invocable.
func (f Func) Call(ctx context.Context, args []any) (any, error) {
	return f(ctx, args)
}

// SlotOption configures a Binding at registration.
type SlotOption func(*Binding)

// WithPriority gives the slot an explicit priority for asynchronous dispatch.
// Higher values run first.
func WithPriority(p int) SlotOption {
	return func(b *Binding) {
		b.priority = workerpool.PriorityOf(p)
	}
}

// WithSerialized makes the slot run at most one call at a time. Concurrent
// sync callers and pool workers wait for the running call. A re-entrant call
// from inside the slot is not blocked.
func WithSerialized() SlotOption {
	return func(b *Binding) {
		b.serial = &sync.Mutex{}
	}
}

// Binding is a registered slot: a target plus the shape it declared.
type Binding struct {
	id     string
	signal string
	target Invocable
	params []Type
	result Type

	mu       sync.RWMutex
	priority workerpool.Priority

	// serial is set by WithSerialized.
	serial *sync.Mutex

	// gate is held shared for the duration of every target call and taken
	// exclusively when the binding is removed.
	gate     sync.RWMutex
	detached atomic.Bool
}

func newBinding(signal string, target Invocable, params []Type, result Type) *Binding {
	return &Binding{
		id:     uuid.NewString(),
		signal: signal,
		target: target,
		params: copyTypes(params),
		result: result,
	}
}

// ID returns the unique binding identifier.
func (b *Binding) ID() string {
	return b.id
}

// Signal returns the name of the signal the slot is registered on.
func (b *Binding) Signal() string {
	return b.signal
}

// Params returns a copy of the declared parameter types.
func (b *Binding) Params() []Type {
	return copyTypes(b.params)
}

// Result returns the declared result type.
func (b *Binding) Result() Type {
	return b.result
}

// Priority returns the explicit priority, if any.
func (b *Binding) Priority() (int, bool) {
	return b.schedulingPriority().Value()
}

// SetPriority sets an explicit priority. It applies to later dispatches.
func (b *Binding) SetPriority(p int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.priority = workerpool.PriorityOf(p)
}

// ClearPriority removes the explicit priority.
func (b *Binding) ClearPriority() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.priority = workerpool.Unset
}

// Serialized reports whether calls into the slot are mutually exclusive.
func (b *Binding) Serialized() bool {
	return b.serial != nil
}

// Active reports whether the binding is still registered.
func (b *Binding) Active() bool {
	return !b.detached.Load()
}

// String implements fmt.Stringer.
func (b *Binding) String() string {
	return fmt.Sprintf("slot %s on %s", b.id, b.signal)
}

func (b *Binding) schedulingPriority() workerpool.Priority {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.priority
}

// detach stops the binding from being started again and waits for in-flight
// calls to return. The wait is skipped when ctx belongs to one of those calls.
func (b *Binding) detach(ctx context.Context) {
	b.detached.Store(true)
	if inCallChain(ctx, b) {
		return
	}
	b.gate.Lock()
	b.gate.Unlock()
}

// invoke calls the target and checks its result. ran is false when the
// binding was detached before the call could start.
func (b *Binding) invoke(ctx context.Context, args []any) (value any, ran bool, err error) {
	reentrant := inCallChain(ctx, b)
	if !reentrant {
		b.gate.RLock()
		defer b.gate.RUnlock()
	}
	if b.detached.Load() {
		return nil, false, nil
	}
	if b.serial != nil && !reentrant {
		b.serial.Lock()
		defer b.serial.Unlock()
		if b.detached.Load() {
			return nil, false, nil
		}
	}

	value, err = b.call(withCall(ctx, b), args)
	if err != nil {
		return nil, true, &InvocationFailureError{Signal: b.signal, SlotID: b.id, Cause: err}
	}
	if b.result.IsVoid() {
		return nil, true, nil
	}
	if value == nil {
		return nil, true, &ReturnTypeMismatchError{Signal: b.signal, SlotID: b.id, Want: b.result, Absent: true}
	}
	if !b.result.Accepts(value) {
		return nil, true, &ReturnTypeMismatchError{Signal: b.signal, SlotID: b.id, Got: TypeOfValue(value), Want: b.result}
	}
	return value, true, nil
}

func (b *Binding) call(ctx context.Context, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.target.Call(ctx, args)
}

// callFrame links the bindings currently executing on a call chain.
type callFrame struct {
	binding *Binding
	parent  *callFrame
}

type callKey struct{}

func withCall(ctx context.Context, b *Binding) context.Context {
	parent, _ := ctx.Value(callKey{}).(*callFrame)
	return context.WithValue(ctx, callKey{}, &callFrame{binding: b, parent: parent})
}

func inCallChain(ctx context.Context, b *Binding) bool {
	if ctx == nil {
		return false
	}
	frame, _ := ctx.Value(callKey{}).(*callFrame)
	for ; frame != nil; frame = frame.parent {
		if frame.binding == b {
			return true
		}
	}
	return false
}

// withoutCallChain drops call chain markers so work handed to another
// goroutine does not inherit them.
func withoutCallChain(ctx context.Context) context.Context {
	if ctx.Value(callKey{}) == nil {
		return ctx
	}
	return context.WithValue(ctx, callKey{}, (*callFrame)(nil))
}

func isNilTarget(target Invocable) bool {
	if target == nil {
		return true
	}
	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
