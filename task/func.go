package task

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
)

// Compile-time interface check.
var _ core.Task = (*Func)(nil)

// Func adapts a plain function to core.Task.
type Func struct {
	name string
	fn   func(ctx context.Context, input core.TaskInput) (core.TaskOutput, error)
}

// NewFunc validates name and wraps fn.
func NewFunc(name string, fn func(ctx context.Context, input core.TaskInput) (core.TaskOutput, error)) (*Func, error) {
	if err := core.ValidateTaskName(name); err != nil {
		return nil, err
	}

	if fn == nil {
		return nil, fmt.Errorf("%w: fn", core.ErrMissingArgument)
	}

	return &Func{name: name, fn: fn}, nil
}

// NewTextFunc wraps a text to text function. Non-text input fails with
// core.ErrInvalidInput before fn runs.
func NewTextFunc(name string, fn func(ctx context.Context, input string) (string, error)) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: fn", core.ErrMissingArgument)
	}

	return NewFunc(name, func(ctx context.Context, in core.TaskInput) (core.TaskOutput, error) {
		text, ok := in.Text()
		if !ok {
			return core.TaskOutput{}, fmt.Errorf("%w: got %T", core.ErrInvalidInput, in.Content)
		}

		out, err := fn(ctx, text)
		if err != nil {
			return core.TaskOutput{}, err
		}

		return core.TaskOutput{Content: out}, nil
	})
}

// Name implements core.Task.
func (f *Func) Name() string { return f.name }

// Execute implements core.Task.
func (f *Func) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	return f.fn(ctx, input)
}
