package core

import "context"

// TaskInput is the value handed to a Task. Content is usually text produced by
// placeholder resolution, but structured payloads are allowed.
type TaskInput struct {
	Content any
}

// Text returns the content as a string and reports whether it was one.
func (in TaskInput) Text() (string, bool) {
	s, ok := in.Content.(string)
	return s, ok
}

// TaskOutput is the result of a Task. Content is the normalized result,
// RawOutput the unmodified provider response kept for introspection.
type TaskOutput struct {
	Content   any
	RawOutput any
}

// Text returns the content as a string and reports whether it was one.
func (out TaskOutput) Text() (string, bool) {
	s, ok := out.Content.(string)
	return s, ok
}

// Task is a named unit of work. Names must be non-empty and are validated when
// the task is constructed (see ValidateTaskName).
//
// Implementations must:
//   - Respect ctx cancellation for provider calls
//   - Return domain errors unchanged so callers can match them with errors.Is/As
type Task interface {
	Name() string
	Execute(ctx context.Context, input TaskInput) (TaskOutput, error)
}
