package cohere

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/model"
)

// fakeServer replays canned chat bodies and records requests.
type fakeServer struct {
	t         *testing.T
	mu        sync.Mutex
	status    int
	responses []string
	requests  []map[string]any
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.True(f.t, strings.HasSuffix(r.URL.Path, "/chat"), r.URL.Path)
	assert.Equal(f.t, "Bearer test", r.Header.Get("Authorization"))

	var body map[string]any
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	f.requests = append(f.requests, body)

	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = w.Write([]byte(f.responses[i]))
}

func newTestChat(t *testing.T, f *fakeServer, optFns ...func(o *Options)) *Chat {
	t.Helper()

	f.t = t
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	fns := append([]func(o *Options){func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	}}, optFns...)

	return NewChat(fns...)
}

const textReply = `{"text":"It is sunny.","generation_id":"g2","finish_reason":"COMPLETE",
"chat_history":[
 {"role":"USER","message":"Weather in Berlin?"},
 {"role":"CHATBOT","message":"It is sunny."}
]}`

const toolReply = `{"text":"","generation_id":"g1","finish_reason":"COMPLETE",
"tool_calls":[
 {"name":"weather","parameters":{"city":"Berlin"}},
 {"name":"time","parameters":{}}
],
"chat_history":[
 {"role":"USER","message":"Weather in Berlin?"},
 {"role":"CHATBOT","message":""}
]}`

var weatherTool = model.ToolDefinition{
	Type: "function",
	Function: model.FunctionDefinition{
		Name:        "weather",
		Description: "Look up weather",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string", "description": "City name"},
				"days": map[string]any{"type": "integer"},
			},
			"required": []string{"city"},
		},
	},
}

func TestConversation_TextReply(t *testing.T) {
	f := &fakeServer{responses: []string{textReply}}
	chat := newTestChat(t, f, func(o *Options) {
		o.SystemPrompt = "Be brief."
		o.MaxTokens = 64
	})

	resp, err := chat.Conversation("Weather in Berlin?").Send(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "It is sunny.", resp.Text)
	assert.False(t, resp.HasFunctionCalls())

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "Weather in Berlin?", req["message"])
	assert.Equal(t, DefaultModel, req["model"])
	assert.Equal(t, "Be brief.", req["preamble"])
	assert.EqualValues(t, 64, req["max_tokens"])
	assert.InDelta(t, 0.3, req["temperature"], 1e-9)
	assert.Nil(t, req["tool_results"])
}

func TestConversation_ToolRoundTrip(t *testing.T) {
	f := &fakeServer{responses: []string{toolReply, textReply}}
	chat := newTestChat(t, f)

	conv := chat.Conversation("Weather in Berlin?")

	resp, err := conv.Send(context.Background(), []model.ToolDefinition{weatherTool})
	require.NoError(t, err)
	require.Len(t, resp.FunctionCalls, 2)
	assert.Empty(t, resp.Text)
	assert.Equal(t, model.FunctionCall{Name: "weather", Args: map[string]any{"city": "Berlin"}}, resp.FunctionCalls[0])
	assert.Equal(t, model.FunctionCall{Name: "time", Args: map[string]any{}}, resp.FunctionCalls[1])

	conv.AddToolResult(resp.FunctionCalls[0], "sunny")
	conv.AddToolResult(resp.FunctionCalls[1], "noon")

	resp, err = conv.Send(context.Background(), []model.ToolDefinition{weatherTool})
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", resp.Text)

	require.Len(t, f.requests, 2)

	tools := f.requests[0]["tools"].([]any)
	require.Len(t, tools, 1)
	defs := tools[0].(map[string]any)["parameter_definitions"].(map[string]any)
	city := defs["city"].(map[string]any)
	assert.Equal(t, "str", city["type"])
	assert.Equal(t, "City name", city["description"])
	assert.Equal(t, true, city["required"])
	assert.Equal(t, "int", defs["days"].(map[string]any)["type"])

	second := f.requests[1]
	assert.Equal(t, "Weather in Berlin?", second["message"])
	assert.Len(t, second["chat_history"], 2)

	results := second["tool_results"].([]any)
	require.Len(t, results, 2)

	first := results[0].(map[string]any)
	assert.Equal(t, "weather", first["call"].(map[string]any)["name"])
	assert.Equal(t, []any{map[string]any{"answer": "sunny"}}, first["outputs"])
}

func TestConversation_ToolResultsSentOnce(t *testing.T) {
	f := &fakeServer{responses: []string{toolReply, toolReply, textReply}}
	conv := newTestChat(t, f).Conversation("Weather in Berlin?")

	resp, err := conv.Send(context.Background(), []model.ToolDefinition{weatherTool})
	require.NoError(t, err)
	conv.AddToolResult(resp.FunctionCalls[0], "sunny")

	resp, err = conv.Send(context.Background(), []model.ToolDefinition{weatherTool})
	require.NoError(t, err)
	conv.AddToolResult(resp.FunctionCalls[1], "noon")

	_, err = conv.Send(context.Background(), []model.ToolDefinition{weatherTool})
	require.NoError(t, err)

	require.Len(t, f.requests, 3)
	assert.Len(t, f.requests[1]["tool_results"], 1)

	last := f.requests[2]["tool_results"].([]any)
	require.Len(t, last, 1)
	assert.Equal(t, "time", last[0].(map[string]any)["call"].(map[string]any)["name"])
}

func TestConversation_FinishReasons(t *testing.T) {
	tests := []struct {
		finish string
		reason model.Reason
	}{
		{"ERROR_TOXIC", model.ReasonSafetyCheckFailed},
		{"ERROR_LIMIT", model.ReasonTokenLimitReached},
		{"MAX_TOKENS", model.ReasonTokenLimitReached},
		{"USER_CANCEL", model.ReasonNoNaturalStopPoint},
		{"ERROR", model.ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.finish, func(t *testing.T) {
			body := `{"text":"partial","finish_reason":"` + tt.finish + `"}`
			chat := newTestChat(t, &fakeServer{responses: []string{body}})

			_, err := chat.Conversation("q").Send(context.Background(), nil)

			var genErr *model.GenerationFailedError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.reason, genErr.Reason)
		})
	}
}

func TestConversation_EmptyText(t *testing.T) {
	chat := newTestChat(t, &fakeServer{responses: []string{`{"text":"","finish_reason":"COMPLETE"}`}})

	_, err := chat.Conversation("q").Send(context.Background(), nil)

	var genErr *model.GenerationFailedError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, model.ReasonNoTextData, genErr.Reason)
}

func TestConversation_HTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		reason model.Reason
	}{
		{http.StatusTooManyRequests, model.ReasonRateLimitExceeded},
		{http.StatusInternalServerError, model.ReasonServerError},
		{http.StatusBadRequest, model.ReasonInvalidPrompt},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := &fakeServer{status: tt.status, responses: []string{`{"message":"nope"}`}}
			chat := newTestChat(t, f)

			_, err := chat.Conversation("q").Send(context.Background(), nil)

			var genErr *model.GenerationFailedError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.reason, genErr.Reason)
			assert.Len(t, f.requests, 1, "no retries")
		})
	}
}

func TestClassifyError(t *testing.T) {
	plain := errors.New("dial tcp: refused")
	assert.ErrorIs(t, classifyError(plain), plain)
}

func TestParameterType(t *testing.T) {
	assert.Equal(t, "str", parameterType("string"))
	assert.Equal(t, "float", parameterType("number"))
	assert.Equal(t, "bool", parameterType("boolean"))
	assert.Equal(t, "list", parameterType("array"))
	assert.Equal(t, "dict", parameterType("object"))
	assert.Equal(t, "str", parameterType(nil))
}

func TestChat_Info(t *testing.T) {
	chat := NewChatFromClient(nil, func(o *Options) { o.Model = "command-r" })
	assert.Equal(t, model.Info{Name: "command-r", Provider: "cohere", SupportsTools: true}, chat.Info())
}
