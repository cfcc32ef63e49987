package signal

import "reflect"

// Type describes a parameter or result type of a contract. The zero value is
// Void, meaning "no value".
//
// Two descriptors are equal when they describe the same Go type, so Types can
// be compared with ==.
type Type struct {
	rt reflect.Type
}

// Void is the result type of a signal that returns nothing.
var Void = Type{}

// TypeOf returns the descriptor for T. Interface types are allowed, for
// example TypeOf[error]() or TypeOf[fmt.Stringer]().
func TypeOf[T any]() Type {
	return Type{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeOfValue returns the descriptor of v's dynamic type, or Void for nil.
func TypeOfValue(v any) Type {
	if v == nil {
		return Void
	}
	return Type{rt: reflect.TypeOf(v)}
}

// TypesOf returns the descriptors of the given sample values.
func TypesOf(samples ...any) []Type {
	out := make([]Type, len(samples))
	for i, s := range samples {
		out[i] = TypeOfValue(s)
	}
	return out
}

// Params is shorthand for building a parameter list.
func Params(types ...Type) []Type {
	return types
}

// IsVoid reports whether t is Void.
func (t Type) IsVoid() bool {
	return t.rt == nil
}

// Reflect returns the underlying reflect.Type, nil for Void.
func (t Type) Reflect() reflect.Type {
	return t.rt
}

// String returns the Go type name, or "void".
func (t Type) String() string {
	if t.rt == nil {
		return "void"
	}
	return t.rt.String()
}

// Accepts reports whether v is an instance of t. A nil value is never an
// instance of any type. For interface descriptors v must implement the
// interface; otherwise v's type must be assignable to t.
func (t Type) Accepts(v any) bool {
	if t.rt == nil || v == nil {
		return false
	}
	vt := reflect.TypeOf(v)
	if t.rt.Kind() == reflect.Interface {
		return vt.Implements(t.rt)
	}
	return vt.AssignableTo(t.rt)
}

func typeNames(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

func copyTypes(types []Type) []Type {
	if len(types) == 0 {
		return nil
	}
	out := make([]Type, len(types))
	copy(out, types)
	return out
}
