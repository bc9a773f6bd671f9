// Package anthropic implements model.Chat on the Anthropic Messages API.
// Tool calls arrive as tool_use blocks; their results are sent back as
// tool_result blocks in a single user message on the next turn.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/model"
)

// Compile-time interface checks.
var (
	_ model.Chat         = (*Chat)(nil)
	_ model.Conversation = (*Conversation)(nil)
)

// Options configures the Anthropic chat adapter (temperature, model id,
// max tokens, system prompt, API key).
type Options struct {
	Model        anthropic.Model
	Temperature  float64
	MaxTokens    int64
	SystemPrompt string
	APIKey       string
	BaseURL      string
}

// Chat wraps the Anthropic Messages API behind model.Chat.
type Chat struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   1024,
	}
}

// NewChat creates a chat using a new official client. SDK retries are
// disabled; failures surface to the caller unchanged.
func NewChat(optFns ...func(o *Options)) *Chat {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Chat{client: &client, opts: opts}
}

// NewChatFromClient creates a chat from an existing client.
func NewChatFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Chat {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Chat{client: client, opts: opts}
}

// Conversation implements model.Chat.
func (c *Chat) Conversation(input string) model.Conversation {
	return &Conversation{
		chat:     c,
		messages: []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(input))},
	}
}

// Info returns metadata describing this Anthropic chat implementation.
func (c *Chat) Info() model.Info {
	return model.Info{
		Name:          string(c.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}

// Conversation is an Anthropic message list. Tool results are buffered until
// the next Send so that all results of one turn share a user message.
type Conversation struct {
	chat     *Chat
	messages []anthropic.MessageParam
	pending  []anthropic.ContentBlockParamUnion
}

// Send implements model.Conversation.
func (cv *Conversation) Send(ctx context.Context, tools []model.ToolDefinition) (*model.ChatResponse, error) {
	if len(cv.pending) > 0 {
		cv.messages = append(cv.messages, anthropic.NewUserMessage(cv.pending...))
		cv.pending = nil
	}

	resp, err := cv.chat.client.Messages.New(ctx, cv.buildParams(tools))
	if err != nil {
		return nil, classifyError(err)
	}

	var (
		text   string
		calls  []model.FunctionCall
		blocks []anthropic.ContentBlockParamUnion
	)

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			tb := block.AsText()
			if tb.Text == "" {
				continue
			}
			text += tb.Text
			blocks = append(blocks, anthropic.NewTextBlock(tb.Text))
		case "tool_use":
			tu := block.AsToolUse()

			args := map[string]any{}
			if len(tu.Input) > 0 {
				if err := json.Unmarshal(tu.Input, &args); err != nil {
					return nil, &model.GenerationFailedError{
						Reason:  model.ReasonOther,
						Message: fmt.Sprintf("invalid input for tool %q", tu.Name),
						Err:     err,
					}
				}
			}

			calls = append(calls, model.FunctionCall{ID: tu.ID, Name: tu.Name, Args: args})
			blocks = append(blocks, anthropic.NewToolUseBlock(tu.ID, args, tu.Name))
		}
	}

	if len(calls) > 0 {
		cv.messages = append(cv.messages, anthropic.NewAssistantMessage(blocks...))
		return &model.ChatResponse{RawOutput: resp, FunctionCalls: calls}, nil
	}

	switch string(resp.StopReason) {
	case "end_turn", "stop_sequence":
	case "max_tokens":
		return nil, &model.GenerationFailedError{Reason: model.ReasonTokenLimitReached}
	case "refusal":
		return nil, &model.GenerationFailedError{Reason: model.ReasonSafetyCheckFailed}
	default:
		return nil, &model.GenerationFailedError{
			Reason:  model.ReasonNoNaturalStopPoint,
			Message: fmt.Sprintf("stop reason %q", resp.StopReason),
		}
	}

	if text == "" {
		return nil, &model.GenerationFailedError{Reason: model.ReasonNoTextData}
	}

	cv.messages = append(cv.messages, anthropic.NewAssistantMessage(blocks...))

	return &model.ChatResponse{Text: text, RawOutput: resp}, nil
}

// AddToolResult implements model.Conversation.
func (cv *Conversation) AddToolResult(call model.FunctionCall, result string) {
	cv.pending = append(cv.pending, anthropic.NewToolResultBlock(call.ID, result, false))
}

func (cv *Conversation) buildParams(tools []model.ToolDefinition) anthropic.MessageNewParams {
	opts := cv.chat.opts

	params := anthropic.MessageNewParams{
		Model:       opts.Model,
		Messages:    cv.messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: anthropic.Float(opts.Temperature),
	}

	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
	}

	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	return params
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := tool.Function.Parameters; params != nil {
			if properties, exists := params["properties"]; exists {
				inputSchema.Properties = properties
			}
			inputSchema.Required = util.RequiredFields(params)
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if out[i].OfTool != nil && tool.Function.Description != "" {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}

	return out
}

// classifyError maps SDK errors onto the model failure vocabulary.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic api error: %w", err)
	}

	return &model.GenerationFailedError{Reason: model.ReasonForStatus(apiErr.StatusCode), Err: err}
}
