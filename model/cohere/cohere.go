// Package cohere implements model.Chat on the Cohere Chat API with tool use.
// Cohere keys tool calls by name, so FunctionCall.ID is always empty. The
// conversation replays the chat history echoed by the API and sends the tool
// results of the latest turn.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	coheresdk "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	coherecore "github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/hupe1980/taskmesh/model"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "command-r-plus"

// Compile-time interface checks.
var (
	_ model.Chat         = (*Chat)(nil)
	_ model.Conversation = (*Conversation)(nil)
)

// Options configure the Cohere chat adapter.
type Options struct {
	Model       string
	Temperature float64
	// MaxTokens limits the reply length. Zero leaves the API default.
	MaxTokens int
	// SystemPrompt is sent as the preamble of every request.
	SystemPrompt string
	// APIKey, BaseURL and HTTPClient are only used by NewChat. An empty
	// APIKey falls back to the SDK default (CO_API_KEY).
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Chat wraps the Cohere Chat API behind model.Chat.
type Chat struct {
	client *cohereclient.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       DefaultModel,
		Temperature: 0.3,
	}
}

// NewChat creates a chat using a new official client. SDK retries are
// disabled.
func NewChat(optFns ...func(o *Options)) *Chat {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxAttempts(1)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithToken(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}

	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Chat{client: cohereclient.NewClient(clientOpts...), opts: opts}
}

// NewChatFromClient creates a chat from an existing client.
func NewChatFromClient(client *cohereclient.Client, optFns ...func(o *Options)) *Chat {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Chat{client: client, opts: opts}
}

// Conversation implements model.Chat.
func (c *Chat) Conversation(input string) model.Conversation {
	return &Conversation{chat: c, message: input}
}

// Info returns metadata describing this Cohere chat implementation.
func (c *Chat) Info() model.Info {
	return model.Info{
		Name:          c.opts.Model,
		Provider:      "cohere",
		SupportsTools: true,
	}
}

// Conversation holds the chat history echoed by the API and the tool results
// still to be sent.
type Conversation struct {
	chat    *Chat
	message string
	history []*coheresdk.Message
	pending []*coheresdk.ToolResult
}

// Send implements model.Conversation.
func (cv *Conversation) Send(ctx context.Context, tools []model.ToolDefinition) (*model.ChatResponse, error) {
	resp, err := cv.chat.client.Chat(ctx, cv.buildRequest(tools))
	if err != nil {
		return nil, classifyError(err)
	}

	cv.pending = nil
	if len(resp.ChatHistory) > 0 {
		cv.history = resp.ChatHistory
	}

	if resp.FinishReason != nil {
		if err := finishError(string(*resp.FinishReason)); err != nil {
			return nil, err
		}
	}

	if len(resp.ToolCalls) > 0 {
		calls := make([]model.FunctionCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			args := map[string]any{}
			for k, v := range tc.Parameters {
				args[k] = v
			}

			calls = append(calls, model.FunctionCall{Name: tc.Name, Args: args})
		}

		return &model.ChatResponse{RawOutput: resp, FunctionCalls: calls}, nil
	}

	if resp.Text == "" {
		return nil, &model.GenerationFailedError{Reason: model.ReasonNoTextData}
	}

	return &model.ChatResponse{Text: resp.Text, RawOutput: resp}, nil
}

// AddToolResult implements model.Conversation.
func (cv *Conversation) AddToolResult(call model.FunctionCall, result string) {
	params := make(map[string]any, len(call.Args))
	for k, v := range call.Args {
		params[k] = v
	}

	cv.pending = append(cv.pending, &coheresdk.ToolResult{
		Call:    &coheresdk.ToolCall{Name: call.Name, Parameters: params},
		Outputs: []map[string]any{{"answer": result}},
	})
}

func (cv *Conversation) buildRequest(tools []model.ToolDefinition) *coheresdk.ChatRequest {
	opts := cv.chat.opts

	req := &coheresdk.ChatRequest{
		Message:     cv.message,
		Model:       ptr(opts.Model),
		Temperature: ptr(opts.Temperature),
		ChatHistory: cv.history,
		ToolResults: cv.pending,
	}

	if opts.SystemPrompt != "" {
		req.Preamble = ptr(opts.SystemPrompt)
	}

	if opts.MaxTokens > 0 {
		req.MaxTokens = ptr(opts.MaxTokens)
	}

	for _, tdef := range tools {
		req.Tools = append(req.Tools, convertTool(tdef))
	}

	return req
}

// convertTool flattens a JSON Schema object into Cohere parameter
// definitions.
func convertTool(tdef model.ToolDefinition) *coheresdk.Tool {
	tool := &coheresdk.Tool{
		Name:        tdef.Function.Name,
		Description: tdef.Function.Description,
	}

	props, _ := tdef.Function.Parameters["properties"].(map[string]any)
	if len(props) == 0 {
		return tool
	}

	required := map[string]bool{}
	switch req := tdef.Function.Parameters["required"].(type) {
	case []string:
		for _, r := range req {
			required[r] = true
		}
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	tool.ParameterDefinitions = make(map[string]*coheresdk.ToolParameterDefinitionsValue, len(props))

	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		def := &coheresdk.ToolParameterDefinitionsValue{
			Type:     parameterType(prop["type"]),
			Required: ptr(required[name]),
		}

		if desc, ok := prop["description"].(string); ok && desc != "" {
			def.Description = ptr(desc)
		}

		tool.ParameterDefinitions[name] = def
	}

	return tool
}

// parameterType maps JSON Schema types to the type names Cohere expects.
func parameterType(t any) string {
	switch t {
	case "integer":
		return "int"
	case "number":
		return "float"
	case "boolean":
		return "bool"
	case "array":
		return "list"
	case "object":
		return "dict"
	default:
		return "str"
	}
}

func finishError(reason string) error {
	switch reason {
	case "COMPLETE":
		return nil
	case "ERROR_TOXIC":
		return &model.GenerationFailedError{Reason: model.ReasonSafetyCheckFailed}
	case "ERROR_LIMIT":
		return &model.GenerationFailedError{Reason: model.ReasonTokenLimitReached, Message: "context limit exceeded"}
	case "MAX_TOKENS":
		return &model.GenerationFailedError{Reason: model.ReasonTokenLimitReached}
	case "USER_CANCEL":
		return &model.GenerationFailedError{Reason: model.ReasonNoNaturalStopPoint, Message: "cancelled"}
	default:
		return &model.GenerationFailedError{
			Reason:  model.ReasonOther,
			Message: fmt.Sprintf("finish reason %q", reason),
		}
	}
}

// classifyError maps SDK errors onto the model failure vocabulary.
func classifyError(err error) error {
	var apiErr *coherecore.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("cohere api error: %w", err)
	}

	return &model.GenerationFailedError{Reason: model.ReasonForStatus(apiErr.StatusCode), Err: err}
}

func ptr[T any](v T) *T { return &v }
