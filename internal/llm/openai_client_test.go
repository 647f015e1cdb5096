package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/errors"
	"medassist/internal/ids"
)

func TestStreamAggregatesDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"chatcmpl-1","choices":[{"delta":{"reasoning_content":"thinking "}}]}`,
			`{"id":"chatcmpl-1","choices":[{"delta":{"content":"Hello"}}]}`,
			`{"id":"chatcmpl-1","choices":[{"delta":{"content":" world"}}]}`,
			`{"id":"chatcmpl-1","choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"web_search","arguments":"{\"query\":"}}]}}]}`,
			`{"id":"chatcmpl-1","choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"flu\"}"}}]}}]}`,
			`{"id":"chatcmpl-1","choices":[{"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
		}
		for _, c := range chunks {
			_, _ = w.Write([]byte("data: " + c + "\n\n"))
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-model", srv.URL, "test-key")

	var deltas []ContentDelta
	resp, err := client.Stream(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, StreamCallbacks{OnContentDelta: func(d ContentDelta) { deltas = append(deltas, d) }})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.MessageID)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "thinking ", resp.ReasoningContent)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "web_search", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"query": "flu"}, resp.ToolCalls[0].Arguments)

	require.NotEmpty(t, deltas)
	last := deltas[len(deltas)-1]
	assert.True(t, last.Final)
	for _, d := range deltas {
		assert.Equal(t, "chatcmpl-1", d.MessageID)
	}
}

func TestCompleteMapsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit","message":"slow down"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-model", srv.URL, "k")
	_, err := client.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Contains(t, err.Error(), "slow down")
}

func TestCompleteTagsRequestsWithID(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-model", srv.URL, "k")
	ctx := ids.WithWorkflowID(context.Background(), "wf_test")
	for i := 0; i < 2; i++ {
		_, err := client.Complete(ctx, CompletionRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
		require.NoError(t, err)
	}

	require.Len(t, seen, 2)
	for _, id := range seen {
		assert.True(t, strings.HasPrefix(id, "req_"), "request id %q", id)
	}
	assert.NotEqual(t, seen[0], seen[1])
}

func TestCompleteParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-9",
			"choices": [{"message": {"content": "fine", "reasoning_content": "hm"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-model", srv.URL, "k")
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "u ok?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-9", resp.MessageID)
	assert.Equal(t, "fine", resp.Content)
	assert.Equal(t, "hm", resp.ReasoningContent)
	assert.Equal(t, "stop", resp.StopReason)
}
