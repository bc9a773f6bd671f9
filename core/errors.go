package core

import (
	"errors"
	"fmt"
)

// Configuration errors are raised while wiring tasks, jobs and agents, never
// during a run.
var (
	// ErrInvalidTaskName is returned for empty or whitespace-only task names.
	ErrInvalidTaskName = errors.New("task name must be non-empty")
	// ErrDuplicateTask is returned when a job already holds a task with the same name.
	ErrDuplicateTask = errors.New("duplicate task name")
	// ErrInvalidMaxTurns is returned when an agent is configured with fewer than one turn.
	ErrInvalidMaxTurns = errors.New("max turns must be 1 or above")
	// ErrMissingArgument is returned when a required constructor argument is nil or empty.
	ErrMissingArgument = errors.New("missing required argument")
)

var (
	// ErrInvalidInput is returned before any provider call when a task that
	// requires text receives non-text content.
	ErrInvalidInput = errors.New("task input content must be text")
	// ErrNonTextContent is returned by placeholder resolution when a referenced
	// input or output does not hold text.
	ErrNonTextContent = errors.New("placeholder content must be text")
	// ErrMaxTurnsReached is returned when an agent exhausts its turn budget
	// without a final text answer.
	ErrMaxTurnsReached = errors.New("reached maximum number of turns")
)

// TaskError names the task whose execution failed. The underlying error is
// kept unchanged and is reachable through errors.Is / errors.As.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.Task, e.Err)
}

// Unwrap returns the underlying task error.
func (e *TaskError) Unwrap() error { return e.Err }
