package signal

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type celsius float64

func (c celsius) String() string { return fmt.Sprintf("%.1fC", float64(c)) }

func TestType_Accepts(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		v    any
		want bool
	}{
		{"int accepts int", TypeOf[int](), 42, true},
		{"int rejects string", TypeOf[int](), "42", false},
		{"int rejects int64", TypeOf[int](), int64(42), false},
		{"nil never accepted", TypeOf[int](), nil, false},
		{"nil never accepted by interface", TypeOf[any](), nil, false},
		{"any accepts string", TypeOf[any](), "x", true},
		{"stringer accepts implementation", TypeOf[fmt.Stringer](), celsius(21), true},
		{"stringer rejects int", TypeOf[fmt.Stringer](), 21, false},
		{"error accepts error value", TypeOf[error](), io.EOF, true},
		{"named type rejects underlying", TypeOf[celsius](), 21.0, false},
		{"void accepts nothing", Void, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Accepts(tt.v))
		})
	}
}

func TestType_Identity(t *testing.T) {
	assert.Equal(t, TypeOf[int](), TypeOfValue(7))
	assert.NotEqual(t, TypeOf[int](), TypeOf[int64]())
	assert.Equal(t, Void, TypeOfValue(nil))
	assert.True(t, Void.IsVoid())
	assert.Nil(t, Void.Reflect())
	assert.Equal(t, "void", Void.String())
	assert.Equal(t, "string", TypeOf[string]().String())
	assert.Equal(t, []Type{TypeOf[int](), TypeOf[string]()}, TypesOf(1, "a"))
}

func TestContract_Accessors(t *testing.T) {
	params := []Type{TypeOf[int](), TypeOf[string]()}
	c := NewContract("user.renamed", params, TypeOf[bool]())

	params[0] = TypeOf[float64]()
	assert.Equal(t, TypeOf[int](), c.Params()[0], "contract must not alias caller slice")

	got := c.Params()
	got[1] = Void
	assert.Equal(t, TypeOf[string](), c.Params()[1], "accessor must return a copy")

	assert.Equal(t, "user.renamed", c.Name())
	assert.Equal(t, 2, c.Arity())
	assert.False(t, c.IsVoid())
	assert.Equal(t, "user.renamed(int, string) bool", c.String())

	empty := NewContract("tick", nil, Void)
	assert.True(t, empty.IsVoid())
	assert.Nil(t, empty.Params())
	assert.Equal(t, "tick() void", empty.String())
}

func TestContract_ValidateArgs(t *testing.T) {
	c := NewContract("point", []Type{TypeOf[int](), TypeOf[string]()}, Void)

	require.NoError(t, c.ValidateArgs(1, "a"))

	err := c.ValidateArgs(1)
	var arity *ArityMismatchError
	require.True(t, errors.As(err, &arity))
	assert.Equal(t, 1, arity.Got)
	assert.Equal(t, 2, arity.Want)

	err = c.ValidateArgs("a", 1)
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 0, mismatch.Position, "first mismatching position is reported")
	assert.Equal(t, TypeOf[string](), mismatch.Got)
	assert.Equal(t, TypeOf[int](), mismatch.Want)

	err = c.ValidateArgs(1, nil)
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Position)
	assert.Contains(t, err.Error(), "nil")

	noParams := NewContract("tick", nil, Void)
	assert.NoError(t, noParams.ValidateArgs())
	assert.True(t, IsArityMismatch(noParams.ValidateArgs(1)))
}

func TestContract_CheckSlot(t *testing.T) {
	c := NewContract("sum", []Type{TypeOf[int](), TypeOf[string]()}, TypeOf[int]())

	assert.NoError(t, c.checkSlot([]Type{TypeOf[int](), TypeOf[string]()}, TypeOf[int]()))
	assert.True(t, IsArityMismatch(c.checkSlot([]Type{TypeOf[int]()}, TypeOf[int]())))
	assert.True(t, IsTypeMismatch(c.checkSlot([]Type{TypeOf[int](), TypeOf[int]()}, TypeOf[int]())))
	assert.True(t, IsReturnTypeMismatch(c.checkSlot([]Type{TypeOf[int](), TypeOf[string]()}, TypeOf[string]())))
	assert.True(t, IsReturnTypeMismatch(c.checkSlot([]Type{TypeOf[int](), TypeOf[string]()}, Void)))
}

func TestErrors_Predicates(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"name conflict", &NameConflictError{Signal: "a"}, IsNameConflict},
		{"missing target", &MissingTargetError{Signal: "a"}, IsMissingTarget},
		{"arity", &ArityMismatchError{Signal: "a", Got: 1, Want: 2}, IsArityMismatch},
		{"type", &TypeMismatchError{Signal: "a", Got: TypeOf[int](), Want: TypeOf[string]()}, IsTypeMismatch},
		{"return", &ReturnTypeMismatchError{Signal: "a", Absent: true}, IsReturnTypeMismatch},
		{"invocation", &InvocationFailureError{Signal: "a", Cause: cause}, IsInvocationFailure},
		{"closed", &RegistryClosedError{Op: "invoke"}, IsRegistryClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.err.Error())
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.check(cause))
		})
	}

	assert.ErrorIs(t, &InvocationFailureError{Cause: cause}, cause)
}
