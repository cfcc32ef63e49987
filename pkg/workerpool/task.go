// Package workerpool provides a bounded, priority-ordered pool of goroutines.
//
// Workers scale between a minimum and a maximum count: MinWorkers goroutines
// are always running, extra workers are started when work arrives and nobody
// is idle, and workers above the minimum retire after IdleTimeout without work.
// Queued tasks are dequeued highest priority first; a task without an explicit
// priority sorts below every task that has one, and ties run in submission
// order.
//
// Basic usage:
//
//	pool, err := workerpool.New(workerpool.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown(context.Background())
//
//	err = pool.Submit(workerpool.NewTaskFunc("notify", workerpool.PriorityOf(5), func(ctx context.Context) error {
//	    return nil
//	}))
package workerpool

import (
	"context"
	"fmt"
	"strconv"
)

// Priority is an optional ordering value. The zero value is Unset.
type Priority struct {
	value int
	set   bool
}

// Unset is the absent priority. It sorts below every explicit priority.
var Unset = Priority{}

// PriorityOf returns an explicit priority.
func PriorityOf(v int) Priority {
	return Priority{value: v, set: true}
}

// Value returns the priority value and whether it is set.
func (p Priority) Value() (int, bool) {
	return p.value, p.set
}

// IsSet reports whether the priority was given explicitly.
func (p Priority) IsSet() bool {
	return p.set
}

// Higher reports whether p should run before other.
// Any explicit priority beats Unset; two Unset priorities are equal.
func (p Priority) Higher(other Priority) bool {
	switch {
	case p.set && other.set:
		return p.value > other.value
	case p.set:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (p Priority) String() string {
	if !p.set {
		return "unset"
	}
	return strconv.Itoa(p.value)
}

// Task is a unit of work that can be submitted to a Pool.
type Task interface {
	// ID returns an identifier used in logs and error reports.
	ID() string

	// Priority returns the scheduling priority of the task.
	Priority() Priority

	// Run executes the task.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	id       string
	priority Priority
	fn       func(ctx context.Context) error
}

// NewTaskFunc creates a new TaskFunc.
func NewTaskFunc(id string, priority Priority, fn func(ctx context.Context) error) *TaskFunc {
	return &TaskFunc{
		id:       id,
		priority: priority,
		fn:       fn,
	}
}

// ID implements Task.ID.
func (t *TaskFunc) ID() string {
	return t.id
}

// Priority implements Task.Priority.
func (t *TaskFunc) Priority() Priority {
	return t.priority
}

// Run implements Task.Run.
func (t *TaskFunc) Run(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task function is nil")
	}
	return t.fn(ctx)
}
