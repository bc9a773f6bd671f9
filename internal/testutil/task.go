package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// Compile-time interface check.
var _ core.Task = (*RecordingTask)(nil)

// RecordingTask is a core.Task that records every input it receives and
// returns the result of Fn (or echoes the input when Fn is nil).
type RecordingTask struct {
	TaskName string
	Fn       func(ctx context.Context, input core.TaskInput) (core.TaskOutput, error)

	mu     sync.Mutex
	inputs []core.TaskInput
}

// NewRecordingTask returns a task that answers every input with output.
func NewRecordingTask(name string, output any) *RecordingTask {
	return &RecordingTask{
		TaskName: name,
		Fn: func(context.Context, core.TaskInput) (core.TaskOutput, error) {
			return core.TaskOutput{Content: output}, nil
		},
	}
}

// NewFailingTask returns a task that always fails with err.
func NewFailingTask(name string, err error) *RecordingTask {
	return &RecordingTask{
		TaskName: name,
		Fn: func(context.Context, core.TaskInput) (core.TaskOutput, error) {
			return core.TaskOutput{}, err
		},
	}
}

// Name implements core.Task.
func (t *RecordingTask) Name() string { return t.TaskName }

// Execute implements core.Task.
func (t *RecordingTask) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	t.mu.Lock()
	t.inputs = append(t.inputs, input)
	t.mu.Unlock()

	if t.Fn == nil {
		return core.TaskOutput{Content: input.Content}, nil
	}

	return t.Fn(ctx, input)
}

// Inputs returns a copy of the recorded inputs.
func (t *RecordingTask) Inputs() []core.TaskInput {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]core.TaskInput(nil), t.inputs...)
}

// Calls returns how often Execute ran.
func (t *RecordingTask) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.inputs)
}
