package model

import "context"

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// FunctionCall is a tool invocation requested by the model. ID correlates the
// result with the call for providers that support several calls per turn; it
// is empty for providers that key calls by name.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ChatResponse is one model reply. Text is empty exactly when FunctionCalls is
// non-empty. FunctionCalls keep the order listed by the provider.
type ChatResponse struct {
	Text          string
	RawOutput     any
	FunctionCalls []FunctionCall
}

// HasFunctionCalls reports whether the model requested tool calls.
func (r *ChatResponse) HasFunctionCalls() bool {
	return r != nil && len(r.FunctionCalls) > 0
}

// Info contains metadata about a chat implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Chat is bound to a provider and model and starts conversations.
type Chat interface {
	// Conversation starts a new conversation seeded with the user input.
	Conversation(input string) Conversation

	// Info returns information about the chat implementation.
	Info() Info
}

// Conversation is the provider specific conversation state.
// A Conversation is not safe for concurrent use.
type Conversation interface {
	// Send asks the model for its next reply. The reply is appended to the
	// conversation before Send returns.
	Send(ctx context.Context, tools []ToolDefinition) (*ChatResponse, error)

	// AddToolResult records the result of call so the next Send can see it.
	AddToolResult(call FunctionCall, result string)
}
