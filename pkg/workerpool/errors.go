package workerpool

import (
	"errors"
	"fmt"
)

// PoolClosedError is returned when submitting to a pool that has been shut down.
type PoolClosedError struct{}

func (e *PoolClosedError) Error() string {
	return "worker pool is closed"
}

// QueueFullError is returned when a bounded queue is at capacity.
type QueueFullError struct {
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("worker pool queue is full (capacity: %d)", e.Capacity)
}

// TaskPanicError wraps a value recovered from a panicking task.
type TaskPanicError struct {
	TaskID string
	Value  any
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPoolClosedError returns true if err is or wraps a PoolClosedError.
func IsPoolClosedError(err error) bool {
	var target *PoolClosedError
	return errors.As(err, &target)
}

// IsQueueFullError returns true if err is or wraps a QueueFullError.
func IsQueueFullError(err error) bool {
	var target *QueueFullError
	return errors.As(err, &target)
}
