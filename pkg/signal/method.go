package signal

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// methodTarget calls a method resolved once at bind time.
type methodTarget struct {
	name     string
	fn       reflect.Value
	in       []reflect.Type
	withCtx  bool
	hasValue bool
	hasErr   bool
}

// BindMethod resolves the exported method named method on receiver and
// returns it as an Invocable for a slot declaring params and result.
//
// The method may take a leading context.Context followed by one parameter per
// declared param type. Its outputs must be one of (), (T), (error) or
// (T, error); a non-nil trailing error becomes an invocation failure.
// Any mismatch is reported as a MissingTargetError.
func BindMethod(receiver any, method string, params []Type, result Type) (Invocable, error) {
	if receiver == nil {
		return nil, &MissingTargetError{Reason: fmt.Sprintf("receiver for method %s is nil", method)}
	}

	fn := reflect.ValueOf(receiver).MethodByName(method)
	if !fn.IsValid() {
		return nil, &MissingTargetError{Reason: fmt.Sprintf("method %s not found on %T", method, receiver)}
	}
	mt := fn.Type()
	if mt.IsVariadic() {
		return nil, &MissingTargetError{Reason: fmt.Sprintf("method %T.%s is variadic", receiver, method)}
	}

	target := &methodTarget{name: fmt.Sprintf("%T.%s", receiver, method), fn: fn}

	in := make([]reflect.Type, mt.NumIn())
	for i := range in {
		in[i] = mt.In(i)
	}
	if len(in) > 0 && in[0] == contextType {
		target.withCtx = true
		in = in[1:]
	}
	if len(in) != len(params) {
		return nil, &MissingTargetError{
			Reason: fmt.Sprintf("method %s takes %d parameter(s), slot declares %d", target.name, len(in), len(params)),
		}
	}
	for i, p := range params {
		if p.IsVoid() || !p.Reflect().AssignableTo(in[i]) {
			return nil, &MissingTargetError{
				Reason: fmt.Sprintf("method %s parameter %d is %s, slot declares %s", target.name, i, in[i], p),
			}
		}
	}
	target.in = in

	var valueType reflect.Type
	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errorType {
			target.hasErr = true
		} else {
			target.hasValue = true
			valueType = mt.Out(0)
		}
	case 2:
		if mt.Out(1) != errorType {
			return nil, &MissingTargetError{Reason: fmt.Sprintf("method %s second result must be error", target.name)}
		}
		target.hasValue = true
		target.hasErr = true
		valueType = mt.Out(0)
	default:
		return nil, &MissingTargetError{Reason: fmt.Sprintf("method %s returns too many values", target.name)}
	}

	if !result.IsVoid() {
		if !target.hasValue {
			return nil, &MissingTargetError{Reason: fmt.Sprintf("method %s returns no value, slot declares %s", target.name, result)}
		}
		if valueType.Kind() != reflect.Interface && !valueType.AssignableTo(result.Reflect()) {
			return nil, &MissingTargetError{Reason: fmt.Sprintf("method %s returns %s, slot declares %s", target.name, valueType, result)}
		}
	}

	return target, nil
}

// Call implements Invocable.
func (m *methodTarget) Call(ctx context.Context, args []any) (any, error) {
	if len(args) != len(m.in) {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", m.name, len(m.in), len(args))
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if m.withCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}
	for i, arg := range args {
		if arg == nil {
			in = append(in, reflect.Zero(m.in[i]))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(m.in[i]) {
			return nil, fmt.Errorf("%s: argument %d has type %s, want %s", m.name, i, v.Type(), m.in[i])
		}
		in = append(in, v)
	}

	out := m.fn.Call(in)

	var value any
	if m.hasValue {
		value = out[0].Interface()
	}
	if m.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return value, errVal.Interface().(error)
		}
	}
	return value, nil
}

func (m *methodTarget) String() string {
	return m.name
}
