package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/commitgen/pkg/llm"
	"github.com/germanamz/commitgen/pkg/llm/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *openai.Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return openai.New(srv.URL, "sk-test", "gpt-test")
}

func completionResponse(t *testing.T, w http.ResponseWriter, content string, promptTokens, completionTokens int) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	resp := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-test",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestComplete_SimpleText(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)

		m0, _ := msgs[0].(map[string]any)
		m1, _ := msgs[1].(map[string]any)
		assert.Equal(t, "system", m0["role"])
		assert.Equal(t, "You write commit messages.", m0["content"])
		assert.Equal(t, "user", m1["role"])
		assert.Equal(t, "Summarize this diff", m1["content"])

		completionResponse(t, w, "feat(auth): add login endpoint", 12, 6)
	})

	got, err := adapter.Complete(context.Background(), llm.Request{
		System: "You write commit messages.",
		User:   "Summarize this diff",
	})
	require.NoError(t, err)
	assert.Equal(t, "feat(auth): add login endpoint", got)

	total := adapter.Usage.Total()
	assert.Equal(t, 12, total.Input)
	assert.Equal(t, 6, total.Output)
}

func TestComplete_NoSystemPrompt(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 1)

		m0, _ := msgs[0].(map[string]any)
		assert.Equal(t, "user", m0["role"])

		completionResponse(t, w, "chore: update files", 5, 3)
	})

	got, err := adapter.Complete(context.Background(), llm.Request{User: "Summarize"})
	require.NoError(t, err)
	assert.Equal(t, "chore: update files", got)
}

func TestComplete_SamplingParams(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.InDelta(t, 0.3, req["temperature"], 1e-9)
		assert.InDelta(t, 100, req["max_tokens"], 0)

		completionResponse(t, w, "ok", 1, 1)
	})

	adapter.Temperature = 0.3
	adapter.MaxTokens = 100

	_, err := adapter.Complete(context.Background(), llm.Request{User: "hi"})
	require.NoError(t, err)
}

func TestComplete_EmptyChoices(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":0,"total_tokens":5}}`))
	})

	_, err := adapter.Complete(context.Background(), llm.Request{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestComplete_HTTPError(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	_, err := adapter.Complete(context.Background(), llm.Request{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNew_Defaults(t *testing.T) {
	a := openai.New("", "key", "")

	assert.Equal(t, openai.DefaultModel, a.Model)
	assert.Empty(t, a.BaseURL)
}
