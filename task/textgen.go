package task

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
)

// Compile-time interface check.
var _ core.Task = (*TextGen)(nil)

// TextGenOptions configures a TextGen task.
type TextGenOptions struct {
	Logger logging.Logger
}

// TextGen sends its input to a chat model once, without tools, and returns
// the reply text. Provider failures surface as *model.GenerationFailedError
// or *model.PromptBlockedError.
type TextGen struct {
	name   string
	chat   model.Chat
	logger logging.Logger
}

// NewTextGen creates a text generation task.
func NewTextGen(name string, chat model.Chat, optFns ...func(o *TextGenOptions)) (*TextGen, error) {
	opts := TextGenOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := core.ValidateTaskName(name); err != nil {
		return nil, err
	}

	if chat == nil {
		return nil, fmt.Errorf("%w: chat", core.ErrMissingArgument)
	}

	return &TextGen{name: name, chat: chat, logger: logging.OrNoOp(opts.Logger)}, nil
}

// Name implements core.Task.
func (t *TextGen) Name() string { return t.name }

// Execute implements core.Task.
func (t *TextGen) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	text, ok := input.Text()
	if !ok {
		return core.TaskOutput{}, fmt.Errorf("%w: got %T", core.ErrInvalidInput, input.Content)
	}

	info := t.chat.Info()
	t.logger.Debug("textgen.request", "task", t.name, "provider", info.Provider, "model", info.Name)

	resp, err := t.chat.Conversation(text).Send(ctx, nil)
	if err != nil {
		t.logger.Error("textgen.error", "task", t.name, "error", err)
		return core.TaskOutput{}, err
	}

	if resp.HasFunctionCalls() {
		return core.TaskOutput{}, &model.GenerationFailedError{
			Reason:  model.ReasonNoTextData,
			Message: "model requested tool calls but none were declared",
		}
	}

	return core.TaskOutput{Content: resp.Text, RawOutput: resp.RawOutput}, nil
}
