package model

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time interface checks.
var (
	_ Chat         = (*MockChat)(nil)
	_ Conversation = (*MockConversation)(nil)
)

// MockTurn is one scripted reply of a MockChat.
type MockTurn struct {
	Response *ChatResponse
	Err      error
}

// ToolResult is a tool result recorded by a MockConversation.
type ToolResult struct {
	Call   FunctionCall
	Result string
}

// MockChat is a lightweight in-memory Chat useful for tests & examples. It
// replays scripted turns in order; once the script is exhausted the last turn
// repeats. Without a script, or for a turn with neither Response nor Err, it
// echoes the input.
type MockChat struct {
	info  Info
	turns []MockTurn

	mu      sync.Mutex
	sends   int
	inputs  []string
	tools   [][]ToolDefinition
	results []ToolResult
}

// NewMockChat constructs a MockChat replaying turns.
func NewMockChat(turns ...MockTurn) *MockChat {
	return &MockChat{
		info:  Info{Name: "mock", Provider: "mock", SupportsTools: true},
		turns: turns,
	}
}

// Conversation implements Chat.
func (m *MockChat) Conversation(input string) Conversation {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	return &MockConversation{chat: m, input: input}
}

// Info implements Chat.
func (m *MockChat) Info() Info { return m.info }

// Sends returns the number of Send calls across all conversations.
func (m *MockChat) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sends
}

// Inputs returns the seed input of every started conversation.
func (m *MockChat) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.inputs...)
}

// Tools returns the tool declarations passed to each Send.
func (m *MockChat) Tools() [][]ToolDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]ToolDefinition(nil), m.tools...)
}

// ToolResults returns every tool result added to any conversation.
func (m *MockChat) ToolResults() []ToolResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]ToolResult(nil), m.results...)
}

// MockConversation is the conversation started by MockChat.
type MockConversation struct {
	chat  *MockChat
	input string
}

// Send implements Conversation.
func (c *MockConversation) Send(ctx context.Context, tools []ToolDefinition) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := c.chat
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.sends
	m.sends++
	m.tools = append(m.tools, tools)

	if len(m.turns) == 0 {
		return c.echo(), nil
	}

	if i >= len(m.turns) {
		i = len(m.turns) - 1
	}

	turn := m.turns[i]
	if turn.Err != nil {
		return nil, turn.Err
	}

	if turn.Response == nil {
		return c.echo(), nil
	}

	return turn.Response, nil
}

func (c *MockConversation) echo() *ChatResponse {
	return &ChatResponse{Text: fmt.Sprintf("Mock response to: %s", c.input)}
}

// AddToolResult implements Conversation.
func (c *MockConversation) AddToolResult(call FunctionCall, result string) {
	c.chat.mu.Lock()
	defer c.chat.mu.Unlock()

	c.chat.results = append(c.chat.results, ToolResult{Call: call, Result: result})
}
