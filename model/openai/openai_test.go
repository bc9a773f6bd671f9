package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/model"
)

// fakeServer replays canned chat completion bodies and records requests.
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

const textReply = `{"id":"c2","object":"chat.completion","created":1,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"It is sunny."}}]}`

const toolReply = `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
"tool_calls":[
 {"id":"call_1","type":"function","function":{"name":"weather","arguments":"{\"city\":\"Berlin\"}"}},
 {"id":"call_2","type":"function","function":{"name":"time","arguments":""}}
]}}]}`

func TestConversation_TextReply(t *testing.T) {
	f := &fakeServer{responses: []string{textReply}}
	chat := newTestChat(t, f, func(o *Options) { o.SystemPrompt = "Be brief." })

	resp, err := chat.Conversation("Weather?").Send(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "It is sunny.", resp.Text)
	assert.Empty(t, resp.FunctionCalls)
	assert.NotNil(t, resp.RawOutput)

	req := f.requests[0]
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.NotContains(t, req, "tools")

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestConversation_ToolRoundTrip(t *testing.T) {
	f := &fakeServer{responses: []string{toolReply, textReply}}
	chat := newTestChat(t, f, func(o *Options) { o.SystemPrompt = "sys" })

	tools := []model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "weather",
			Description: "Look up weather",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{"city": map[string]any{"type": "string"}}},
		},
	}}

	conv := chat.Conversation("Weather in Berlin?")

	resp, err := conv.Send(context.Background(), tools)
	require.NoError(t, err)
	require.Len(t, resp.FunctionCalls, 2)
	assert.Empty(t, resp.Text)
	assert.Equal(t, model.FunctionCall{ID: "call_1", Name: "weather", Args: map[string]any{"city": "Berlin"}}, resp.FunctionCalls[0])
	assert.Equal(t, model.FunctionCall{ID: "call_2", Name: "time", Args: map[string]any{}}, resp.FunctionCalls[1])

	conv.AddToolResult(resp.FunctionCalls[0], "sunny")
	conv.AddToolResult(resp.FunctionCalls[1], "noon")

	resp, err = conv.Send(context.Background(), tools)
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", resp.Text)

	require.Len(t, f.requests, 2)
	assert.Len(t, f.requests[0]["tools"], 1)

	msgs := f.requests[1]["messages"].([]any)
	require.Len(t, msgs, 5) // system, user, assistant(tool_calls), tool, tool

	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool", "tool"}, roles)

	assistant := msgs[2].(map[string]any)
	assert.Len(t, assistant["tool_calls"], 2)

	first := msgs[3].(map[string]any)
	assert.Equal(t, "call_1", first["tool_call_id"])
	assert.Equal(t, "sunny", first["content"])
}

func TestConversation_FinishReasons(t *testing.T) {
	tests := []struct {
		name   string
		finish string
		reason model.Reason
	}{
		{"length", "length", model.ReasonTokenLimitReached},
		{"content filter", "content_filter", model.ReasonSafetyCheckFailed},
		{"unknown", "function_call", model.ReasonNoNaturalStopPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"id":"c","object":"chat.completion","created":1,"model":"m",
"choices":[{"index":0,"finish_reason":"` + tt.finish + `","message":{"role":"assistant","content":"partial"}}]}`
			chat := newTestChat(t, &fakeServer{responses: []string{body}})

			_, err := chat.Conversation("q").Send(context.Background(), nil)

			var genErr *model.GenerationFailedError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.reason, genErr.Reason)
		})
	}
}

func TestConversation_EmptyText(t *testing.T) {
	body := `{"id":"c","object":"chat.completion","created":1,"model":"m",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":""}}]}`
	chat := newTestChat(t, &fakeServer{responses: []string{body}})

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
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := &fakeServer{status: tt.status, responses: []string{`{"error":{"message":"nope","type":"x","code":"x"}}`}}
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
	blocked := classifyError(&openai.Error{StatusCode: http.StatusBadRequest, Code: "content_filter"})

	var blockedErr *model.PromptBlockedError
	require.ErrorAs(t, blocked, &blockedErr)
	assert.Equal(t, model.ReasonSafetyCheckFailed, blockedErr.Reason)

	invalid := classifyError(&openai.Error{StatusCode: http.StatusBadRequest})

	var genErr *model.GenerationFailedError
	require.ErrorAs(t, invalid, &genErr)
	assert.Equal(t, model.ReasonInvalidPrompt, genErr.Reason)

	plain := errors.New("dial tcp: refused")
	assert.ErrorIs(t, classifyError(plain), plain)
}

func TestChat_Info(t *testing.T) {
	chat := NewChatFromClient(nil, func(o *Options) { o.Model = "gpt-4o" })
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai", SupportsTools: true}, chat.Info())
}
