package signal

import (
	"fmt"
	"strings"
)

// Contract is the declared shape of a signal: its name, ordered parameter
// types and result type. Contracts are immutable.
type Contract struct {
	name   string
	params []Type
	result Type
}

// NewContract builds a contract. The params slice is copied.
func NewContract(name string, params []Type, result Type) Contract {
	return Contract{
		name:   name,
		params: copyTypes(params),
		result: result,
	}
}

// Name returns the signal name.
func (c Contract) Name() string {
	return c.name
}

// Params returns a copy of the parameter types.
func (c Contract) Params() []Type {
	return copyTypes(c.params)
}

// Arity returns the number of parameters.
func (c Contract) Arity() int {
	return len(c.params)
}

// Result returns the result type, Void if the signal returns nothing.
func (c Contract) Result() Type {
	return c.result
}

// IsVoid reports whether the signal returns nothing.
func (c Contract) IsVoid() bool {
	return c.result.IsVoid()
}

// String renders the contract as name(T1, T2) R.
func (c Contract) String() string {
	return fmt.Sprintf("%s(%s) %s", c.name, strings.Join(typeNames(c.params), ", "), c.result)
}

// ValidateArgs checks an argument list against the contract: the count must
// match exactly and each argument must be an instance of its parameter type.
func (c Contract) ValidateArgs(args ...any) error {
	if len(args) != len(c.params) {
		return &ArityMismatchError{Signal: c.name, Got: len(args), Want: len(c.params)}
	}
	for i, arg := range args {
		if !c.params[i].Accepts(arg) {
			return &TypeMismatchError{
				Signal:   c.name,
				Position: i,
				Got:      TypeOfValue(arg),
				Want:     c.params[i],
			}
		}
	}
	return nil
}

// checkSlot verifies that a slot's declared shape matches exactly.
func (c Contract) checkSlot(params []Type, result Type) error {
	if len(params) != len(c.params) {
		return &ArityMismatchError{Signal: c.name, Got: len(params), Want: len(c.params)}
	}
	for i, p := range params {
		if p != c.params[i] {
			return &TypeMismatchError{Signal: c.name, Position: i, Got: p, Want: c.params[i]}
		}
	}
	if result != c.result {
		return &ReturnTypeMismatchError{Signal: c.name, Got: result, Want: c.result}
	}
	return nil
}
