package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/tracing"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

// DefaultMaxTurns is the turn budget when Options.MaxTurns is not set.
const DefaultMaxTurns = 5

// Compile-time interface check.
var _ core.Task = (*FunctionAgent)(nil)

// Options configures a FunctionAgent.
type Options struct {
	// MaxTurns bounds the number of model calls per execution. Must be at least 1.
	MaxTurns int
	// Tools are declared to the model and dispatched by name.
	Tools []tool.Tool
	// Logger receives agent and tool events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// FunctionAgent drives a model.Chat through a bounded tool calling loop.
type FunctionAgent struct {
	name     string
	chat     model.Chat
	registry *tool.Registry
	maxTurns int
	logger   logging.Logger
}

// New creates an agent. An empty name, a nil chat, MaxTurns below 1 and
// invalid tools are configuration errors.
func New(name string, chat model.Chat, optFns ...func(o *Options)) (*FunctionAgent, error) {
	opts := Options{
		MaxTurns: DefaultMaxTurns,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := core.ValidateTaskName(name); err != nil {
		return nil, err
	}

	if chat == nil {
		return nil, fmt.Errorf("%w: chat", core.ErrMissingArgument)
	}

	if opts.MaxTurns < 1 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidMaxTurns, opts.MaxTurns)
	}

	logger := logging.OrNoOp(opts.Logger)

	registry, err := tool.NewRegistry(opts.Tools, func(o *tool.RegistryOptions) { o.Logger = logger })
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	return &FunctionAgent{
		name:     name,
		chat:     chat,
		registry: registry,
		maxTurns: opts.MaxTurns,
		logger:   logger,
	}, nil
}

// MustNew is like New but panics on a configuration error.
func MustNew(name string, chat model.Chat, optFns ...func(o *Options)) *FunctionAgent {
	a, err := New(name, chat, optFns...)
	if err != nil {
		panic(err)
	}

	return a
}

// Name implements core.Task.
func (a *FunctionAgent) Name() string { return a.name }

// MaxTurns returns the configured turn budget.
func (a *FunctionAgent) MaxTurns() int { return a.maxTurns }

// Tools returns the registered tool names.
func (a *FunctionAgent) Tools() []string { return a.registry.Names() }

// Execute runs the tool calling loop for input, which must hold text.
func (a *FunctionAgent) Execute(ctx context.Context, input core.TaskInput) (core.TaskOutput, error) {
	text, ok := input.Text()
	if !ok {
		return core.TaskOutput{}, fmt.Errorf("%w: got %T", core.ErrInvalidInput, input.Content)
	}

	limiter, err := core.NewTurnLimiter(a.maxTurns)
	if err != nil {
		return core.TaskOutput{}, err
	}

	conv := a.chat.Conversation(text)
	defs := a.registry.Definitions()
	info := a.chat.Info()

	a.logger.Debug("agent.run.start", "agent", a.name, "provider", info.Provider, "model", info.Name, "max_turns", a.maxTurns)

	for {
		if err := limiter.Increment(); err != nil {
			a.logger.Warn("agent.run.turns_exhausted", "agent", a.name, "max_turns", a.maxTurns)
			return core.TaskOutput{}, err
		}

		out, done, err := a.turn(ctx, conv, defs, limiter.Count())
		if err != nil || done {
			return out, err
		}
	}
}

// turn performs one model call and dispatches the requested tools. done is
// true once the model answered with text.
func (a *FunctionAgent) turn(
	ctx context.Context,
	conv model.Conversation,
	defs []model.ToolDefinition,
	n int,
) (out core.TaskOutput, done bool, err error) {
	ctx, span := tracing.StartTurnSpan(ctx, a.name, n)
	defer func() { tracing.End(span, err) }()

	resp, err := conv.Send(ctx, defs)
	if err != nil {
		a.logger.Error("agent.turn.error", "agent", a.name, "turn", n, "error", err)
		return core.TaskOutput{}, false, err
	}

	if resp == nil {
		return core.TaskOutput{}, false, &model.GenerationFailedError{Reason: model.ReasonNoTextData, Message: "empty reply"}
	}

	if !resp.HasFunctionCalls() {
		a.logger.Debug("agent.turn.text", "agent", a.name, "turn", n)
		return core.TaskOutput{Content: resp.Text, RawOutput: resp.RawOutput}, true, nil
	}

	a.logger.Debug("agent.turn.tool_calls", "agent", a.name, "turn", n, "calls", len(resp.FunctionCalls))

	for _, call := range resp.FunctionCalls {
		result, err := a.registry.Dispatch(ctx, call)
		if err != nil {
			return core.TaskOutput{}, false, err
		}

		conv.AddToolResult(call, result)
	}

	return core.TaskOutput{}, false, nil
}
