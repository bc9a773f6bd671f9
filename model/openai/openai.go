// Package openai implements model.Chat on the OpenAI Chat Completions API
// with function/tool calling. The conversation is a rolling message list;
// tool results are correlated to calls by tool_call_id.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/taskmesh/model"
)

// Compile-time interface checks.
var (
	_ model.Chat         = (*Chat)(nil)
	_ model.Conversation = (*Conversation)(nil)
)

// Options configure the OpenAI chat adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// SystemPrompt is sent once at the start of every conversation.
	SystemPrompt string
	// APIKey and BaseURL are only used by NewChat. Empty values fall back to
	// the SDK defaults (OPENAI_API_KEY, api.openai.com).
	APIKey  string
	BaseURL string
}

// Chat wraps the OpenAI Chat Completions API behind model.Chat.
type Chat struct {
	client *openai.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.3,
		MaxCompletionTokens: 1024,
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

	client := openai.NewClient(clientOpts...)

	return &Chat{client: &client, opts: opts}
}

// NewChatFromClient creates a chat from an existing client.
func NewChatFromClient(client *openai.Client, optFns ...func(o *Options)) *Chat {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Chat{client: client, opts: opts}
}

// Conversation implements model.Chat.
func (c *Chat) Conversation(input string) model.Conversation {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.opts.SystemPrompt))
	}

	messages = append(messages, openai.UserMessage(input))

	return &Conversation{chat: c, messages: messages}
}

// Info returns metadata describing this OpenAI chat implementation.
func (c *Chat) Info() model.Info {
	return model.Info{
		Name:          c.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}

// Conversation is an OpenAI message list.
type Conversation struct {
	chat     *Chat
	messages []openai.ChatCompletionMessageParamUnion
}

// Send implements model.Conversation.
func (cv *Conversation) Send(ctx context.Context, tools []model.ToolDefinition) (*model.ChatResponse, error) {
	resp, err := cv.chat.client.Chat.Completions.New(ctx, cv.buildParams(tools))
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &model.GenerationFailedError{Reason: model.ReasonNoTextData, Message: "no choices returned"}
	}

	choice := resp.Choices[0]

	if len(choice.Message.ToolCalls) > 0 {
		calls, callParams, err := convertToolCalls(choice.Message.ToolCalls)
		if err != nil {
			return nil, err
		}

		cv.messages = append(cv.messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: callParams,
			},
		})

		return &model.ChatResponse{RawOutput: resp, FunctionCalls: calls}, nil
	}

	switch choice.FinishReason {
	case "stop":
	case "length":
		return nil, &model.GenerationFailedError{Reason: model.ReasonTokenLimitReached}
	case "content_filter":
		return nil, &model.GenerationFailedError{Reason: model.ReasonSafetyCheckFailed}
	default:
		return nil, &model.GenerationFailedError{
			Reason:  model.ReasonNoNaturalStopPoint,
			Message: fmt.Sprintf("finish reason %q", choice.FinishReason),
		}
	}

	if choice.Message.Content == "" {
		return nil, &model.GenerationFailedError{Reason: model.ReasonNoTextData}
	}

	cv.messages = append(cv.messages, openai.AssistantMessage(choice.Message.Content))

	return &model.ChatResponse{Text: choice.Message.Content, RawOutput: resp}, nil
}

// AddToolResult implements model.Conversation.
func (cv *Conversation) AddToolResult(call model.FunctionCall, result string) {
	cv.messages = append(cv.messages, openai.ToolMessage(result, call.ID))
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (cv *Conversation) buildParams(tools []model.ToolDefinition) openai.ChatCompletionNewParams {
	opts := cv.chat.opts

	params := openai.ChatCompletionNewParams{
		Messages:            cv.messages,
		Model:               opts.Model,
		Temperature:         openai.Float(opts.Temperature),
		MaxCompletionTokens: openai.Int(opts.MaxCompletionTokens),
	}

	if len(tools) == 0 {
		return params
	}

	params.Tools = make([]openai.ChatCompletionToolParam, len(tools))
	for i, tdef := range tools {
		params.Tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}

	return params
}

// convertToolCalls decodes the provider tool calls into model calls and the
// params needed to replay them in the next request.
func convertToolCalls(
	toolCalls []openai.ChatCompletionMessageToolCall,
) ([]model.FunctionCall, []openai.ChatCompletionMessageToolCallParam, error) {
	calls := make([]model.FunctionCall, 0, len(toolCalls))
	params := make([]openai.ChatCompletionMessageToolCallParam, 0, len(toolCalls))

	for _, tc := range toolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, nil, &model.GenerationFailedError{
					Reason:  model.ReasonOther,
					Message: fmt.Sprintf("invalid arguments for tool %q", tc.Function.Name),
					Err:     err,
				}
			}
		}

		calls = append(calls, model.FunctionCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
		params = append(params, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return calls, params, nil
}

// classifyError maps SDK errors onto the model failure vocabulary.
func classifyError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai api error: %w", err)
	}

	switch apiErr.Code {
	case "content_filter", "content_policy_violation":
		return &model.PromptBlockedError{Reason: model.ReasonSafetyCheckFailed, Err: err}
	case "invalid_prompt":
		return &model.PromptBlockedError{Reason: model.ReasonInvalidPrompt, Err: err}
	}

	return &model.GenerationFailedError{Reason: model.ReasonForStatus(apiErr.StatusCode), Err: err}
}
