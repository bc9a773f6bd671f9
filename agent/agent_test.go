package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

// recordingTool counts calls and records arguments.
type recordingTool struct {
	mu     sync.Mutex
	name   string
	result any
	err    error
	args   []map[string]any
}

func (t *recordingTool) Name() string               { return t.name }
func (t *recordingTool) Description() string        { return "records calls" }
func (t *recordingTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (t *recordingTool) Call(_ context.Context, args map[string]any) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.args = append(t.args, args)
	return t.result, t.err
}

func (t *recordingTool) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.args)
}

func toolCall(id, name string, args map[string]any) model.MockTurn {
	return model.MockTurn{Response: &model.ChatResponse{
		RawOutput:     "raw-call",
		FunctionCalls: []model.FunctionCall{{ID: id, Name: name, Args: args}},
	}}
}

func text(s string) model.MockTurn {
	return model.MockTurn{Response: &model.ChatResponse{Text: s, RawOutput: "raw-" + s}}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	chat := model.NewMockChat()

	_, err := New("", chat)
	assert.ErrorIs(t, err, core.ErrInvalidTaskName)

	_, err = New("a", nil)
	assert.ErrorIs(t, err, core.ErrMissingArgument)

	_, err = New("a", chat, func(o *Options) { o.MaxTurns = 0 })
	assert.ErrorIs(t, err, core.ErrInvalidMaxTurns)

	dup := &recordingTool{name: "f"}
	_, err = New("a", chat, func(o *Options) { o.Tools = []tool.Tool{dup, dup} })
	assert.ErrorIs(t, err, tool.ErrDuplicateTool)

	a, err := New("a", chat)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTurns, a.MaxTurns())

	assert.Panics(t, func() { MustNew("a", nil) })
}

func TestExecute_NoToolCall(t *testing.T) {
	f := &recordingTool{name: "f"}
	chat := model.NewMockChat(text("hello"))

	a := MustNew("agent", chat, func(o *Options) { o.Tools = []tool.Tool{f} })

	out, err := a.Execute(context.Background(), core.TaskInput{Content: "query"})
	require.NoError(t, err)

	assert.Equal(t, "hello", out.Content)
	assert.Equal(t, "raw-hello", out.RawOutput)
	assert.Equal(t, 1, chat.Sends())
	assert.Equal(t, 0, f.calls())
	assert.Equal(t, []string{"query"}, chat.Inputs())

	tools := chat.Tools()
	require.Len(t, tools, 1)
	require.Len(t, tools[0], 1)
	assert.Equal(t, "f", tools[0][0].Function.Name)
}

func TestExecute_OneToolThenText(t *testing.T) {
	f := &recordingTool{name: "f", result: 42}
	chat := model.NewMockChat(
		toolCall("call-1", "f", map[string]any{"x": "y"}),
		text("done"),
	)

	a := MustNew("agent", chat, func(o *Options) {
		o.MaxTurns = 5
		o.Tools = []tool.Tool{f}
	})

	out, err := a.Execute(context.Background(), core.TaskInput{Content: "query"})
	require.NoError(t, err)

	assert.Equal(t, "done", out.Content)
	assert.Equal(t, 2, chat.Sends())
	require.Equal(t, 1, f.calls())
	assert.Equal(t, map[string]any{"x": "y"}, f.args[0])

	results := chat.ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call-1", results[0].Call.ID)
	assert.Equal(t, "42", results[0].Result)
}

func TestExecute_MultipleCallsInProviderOrder(t *testing.T) {
	var order []string
	mk := func(name string) tool.Tool {
		return tool.NewFunctionTool(name, "", nil, func(context.Context, map[string]any) (any, error) {
			order = append(order, name)
			return name + "-result", nil
		})
	}

	chat := model.NewMockChat(
		model.MockTurn{Response: &model.ChatResponse{FunctionCalls: []model.FunctionCall{
			{ID: "1", Name: "second"},
			{ID: "2", Name: "first"},
		}}},
		text("ok"),
	)

	a := MustNew("agent", chat, func(o *Options) { o.Tools = []tool.Tool{mk("first"), mk("second")} })

	_, err := a.Execute(context.Background(), core.TaskInput{Content: "q"})
	require.NoError(t, err)

	assert.Equal(t, []string{"second", "first"}, order)
	results := chat.ToolResults()
	require.Len(t, results, 2)
	assert.Equal(t, "second-result", results[0].Result)
	assert.Equal(t, "first-result", results[1].Result)
}

func TestExecute_BudgetExhaustion(t *testing.T) {
	f := &recordingTool{name: "f", result: "again"}
	chat := model.NewMockChat(toolCall("c", "f", nil))

	a := MustNew("agent", chat, func(o *Options) {
		o.MaxTurns = 1
		o.Tools = []tool.Tool{f}
	})

	_, err := a.Execute(context.Background(), core.TaskInput{Content: "q"})
	require.ErrorIs(t, err, core.ErrMaxTurnsReached)

	assert.Equal(t, 1, chat.Sends())
	assert.Equal(t, 1, f.calls())
}

func TestExecute_InvalidInput(t *testing.T) {
	chat := model.NewMockChat(text("never"))
	a := MustNew("agent", chat)

	_, err := a.Execute(context.Background(), core.TaskInput{Content: []string{"a"}})
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Equal(t, 0, chat.Sends())
	assert.Empty(t, chat.Inputs())
}

func TestExecute_ToolErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	f := &recordingTool{name: "f", err: boom}
	chat := model.NewMockChat(toolCall("c", "f", nil), text("unreachable"))

	a := MustNew("agent", chat, func(o *Options) { o.Tools = []tool.Tool{f} })

	_, err := a.Execute(context.Background(), core.TaskInput{Content: "q"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, chat.Sends())
	assert.Empty(t, chat.ToolResults())
}

func TestExecute_UnknownTool(t *testing.T) {
	chat := model.NewMockChat(toolCall("c", "ghost", nil))
	a := MustNew("agent", chat)

	_, err := a.Execute(context.Background(), core.TaskInput{Content: "q"})
	assert.ErrorIs(t, err, tool.ErrToolNotFound)
}

func TestExecute_ProviderFailure(t *testing.T) {
	chat := model.NewMockChat(model.MockTurn{Err: &model.GenerationFailedError{Reason: model.ReasonSafetyCheckFailed}})
	a := MustNew("agent", chat)

	_, err := a.Execute(context.Background(), core.TaskInput{Content: "q"})

	var genErr *model.GenerationFailedError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, model.ReasonSafetyCheckFailed, genErr.Reason)
}
