package signal

import (
	"errors"
	"fmt"
)

// ErrEmptySignalName is returned when registering a signal without a name.
var ErrEmptySignalName = errors.New("signal name cannot be empty")

// ErrVoidParameter is returned when a signal declares a Void parameter.
var ErrVoidParameter = errors.New("signal parameter cannot be void")

// NameConflictError is returned when a signal name is already registered.
type NameConflictError struct {
	Signal string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("signal %q is already registered", e.Signal)
}

// MissingTargetError is returned when a signal or slot target cannot be found.
type MissingTargetError struct {
	Signal string
	Reason string
}

func (e *MissingTargetError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing target"
	}
	if e.Signal == "" {
		return reason
	}
	return fmt.Sprintf("signal %q: %s", e.Signal, reason)
}

// ArityMismatchError is returned when a parameter or argument count differs
// from the signal contract.
type ArityMismatchError struct {
	Signal string
	Got    int
	Want   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("signal %q expects %d argument(s), got %d", e.Signal, e.Want, e.Got)
}

// TypeMismatchError is returned for the first parameter or argument whose type
// does not match the contract. Position is zero based.
type TypeMismatchError struct {
	Signal   string
	Position int
	Got      Type
	Want     Type
}

func (e *TypeMismatchError) Error() string {
	got := e.Got.String()
	if e.Got.IsVoid() {
		got = "nil"
	}
	return fmt.Sprintf("signal %q: argument %d has type %s, want %s", e.Signal, e.Position, got, e.Want)
}

// ReturnTypeMismatchError is returned when a slot's declared or actual result
// does not match the signal's result type. Absent is set when a non-void
// signal's slot returned nil.
type ReturnTypeMismatchError struct {
	Signal string
	SlotID string
	Got    Type
	Want   Type
	Absent bool
}

func (e *ReturnTypeMismatchError) Error() string {
	if e.Absent {
		return fmt.Sprintf("signal %q: slot %s returned no value, value not expected to be absent (want %s)", e.Signal, e.SlotID, e.Want)
	}
	if e.SlotID == "" {
		return fmt.Sprintf("signal %q: return type %s does not match %s", e.Signal, e.Got, e.Want)
	}
	return fmt.Sprintf("signal %q: slot %s returned %s, want %s", e.Signal, e.SlotID, e.Got, e.Want)
}

// InvocationFailureError wraps an error returned or a panic raised by a slot.
type InvocationFailureError struct {
	Signal string
	SlotID string
	Cause  error
}

func (e *InvocationFailureError) Error() string {
	return fmt.Sprintf("signal %q: slot %s failed: %v", e.Signal, e.SlotID, e.Cause)
}

func (e *InvocationFailureError) Unwrap() error {
	return e.Cause
}

// RegistryClosedError is returned by operations on a registry that has been
// shut down.
type RegistryClosedError struct {
	Op string
}

func (e *RegistryClosedError) Error() string {
	if e.Op == "" {
		return "signal registry is closed"
	}
	return fmt.Sprintf("signal registry is closed: cannot %s", e.Op)
}

// IsNameConflict returns true if err is or wraps a NameConflictError.
func IsNameConflict(err error) bool {
	var target *NameConflictError
	return errors.As(err, &target)
}

// IsMissingTarget returns true if err is or wraps a MissingTargetError.
func IsMissingTarget(err error) bool {
	var target *MissingTargetError
	return errors.As(err, &target)
}

// IsArityMismatch returns true if err is or wraps an ArityMismatchError.
func IsArityMismatch(err error) bool {
	var target *ArityMismatchError
	return errors.As(err, &target)
}

// IsTypeMismatch returns true if err is or wraps a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var target *TypeMismatchError
	return errors.As(err, &target)
}

// IsReturnTypeMismatch returns true if err is or wraps a ReturnTypeMismatchError.
func IsReturnTypeMismatch(err error) bool {
	var target *ReturnTypeMismatchError
	return errors.As(err, &target)
}

// IsInvocationFailure returns true if err is or wraps an InvocationFailureError.
func IsInvocationFailure(err error) bool {
	var target *InvocationFailureError
	return errors.As(err, &target)
}

// IsRegistryClosed returns true if err is or wraps a RegistryClosedError.
func IsRegistryClosed(err error) bool {
	var target *RegistryClosedError
	return errors.As(err, &target)
}
