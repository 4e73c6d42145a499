package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/germanamz/commitgen/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Completer interface tests ---

// Compile-time interface check: a mock satisfies Completer.
var _ llm.Completer = (*mockCompleter)(nil)

type mockCompleter struct {
	reply string
	err   error
}

func (m *mockCompleter) Complete(_ context.Context, _ llm.Request) (string, error) {
	return m.reply, m.err
}

func TestCompleter_Success(t *testing.T) {
	p := &mockCompleter{reply: "feat(api): add login endpoint"}

	got, err := p.Complete(context.Background(), llm.Request{User: "describe the change"})

	require.NoError(t, err)
	assert.Equal(t, "feat(api): add login endpoint", got)
}

func TestCompleter_Error(t *testing.T) {
	p := &mockCompleter{err: errors.New("api error")}

	_, err := p.Complete(context.Background(), llm.Request{User: "describe the change"})

	assert.EqualError(t, err, "api error")
}

// Compile-time interface check: Client itself satisfies Completer.
var _ llm.Completer = (*llm.Client)(nil)

// --- Client (base) tests ---

func TestClient_StubComplete(t *testing.T) {
	var c llm.Client

	_, err := c.Complete(context.Background(), llm.Request{})
	assert.EqualError(t, err, "llm: Complete not implemented")
}

func TestNew_DefaultClient(t *testing.T) {
	c := llm.New("https://api.example.com", llm.Auth{}, nil)
	assert.Nil(t, c.HTTPClient)
}

func TestNew_ModelFields(t *testing.T) {
	c := llm.New("https://api.example.com", llm.Auth{}, nil)
	c.Model = "gemini-1.5-flash"
	c.Temperature = 0.3
	c.MaxTokens = 100

	assert.Equal(t, "gemini-1.5-flash", c.Model)
	assert.InDelta(t, 0.3, c.Temperature, 1e-9)
	assert.Equal(t, 100, c.MaxTokens)
}

func TestNewRequest_BearerAuth(t *testing.T) {
	c := llm.New("https://api.example.com", llm.Auth{Key: "sk-test"}, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/chat", req.URL.String())
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
}

func TestNewRequest_CustomHeader(t *testing.T) {
	auth := llm.Auth{Key: "sk-test", Header: "x-goog-api-key"}
	c := llm.New("https://api.example.com", auth, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", req.Header.Get("x-goog-api-key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestNewRequest_CustomHeaderWithScheme(t *testing.T) {
	auth := llm.Auth{Key: "sk-test", Header: "x-api-key", Scheme: "Token"}
	c := llm.New("https://api.example.com", auth, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "Token sk-test", req.Header.Get("x-api-key"))
}

func TestNewRequest_NoAuth(t *testing.T) {
	c := llm.New("https://api.example.com", llm.Auth{}, nil)

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestNewRequest_ExtraHeaders(t *testing.T) {
	c := llm.New("https://api.example.com", llm.Auth{}, nil)
	c.Headers = map[string]string{
		"x-client-version": "1.0.0",
		"x-custom":         "value",
	}

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/v1/chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", req.Header.Get("x-client-version"))
	assert.Equal(t, "value", req.Header.Get("x-custom"))
}

func TestDo_Passthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := llm.New(srv.URL, llm.Auth{}, srv.Client())

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/ping", nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestPostJSON_Success(t *testing.T) {
	type reqBody struct {
		Model string `json:"model"`
	}
	type respBody struct {
		ID string `json:"id"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got reqBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "gemini-1.5-flash", got.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(respBody{ID: "resp-123"})
	}))
	defer srv.Close()

	c := llm.New(srv.URL, llm.Auth{Key: "sk-test"}, srv.Client())

	var dest respBody
	err := c.PostJSON(context.Background(), "/v1/chat", reqBody{Model: "gemini-1.5-flash"}, &dest)
	require.NoError(t, err)
	assert.Equal(t, "resp-123", dest.ID)
}

func TestPostJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	c := llm.New(srv.URL, llm.Auth{}, srv.Client())

	var dest map[string]string
	err := c.PostJSON(context.Background(), "/v1/chat", map[string]string{"model": "x"}, &dest)
	assert.ErrorContains(t, err, "unexpected status 401")
}

func TestPostJSON_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	c := llm.New(srv.URL, llm.Auth{}, srv.Client())

	err := c.PostJSON(context.Background(), "/v1/chat", map[string]string{"model": "x"}, nil)

	var rle *llm.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 30*time.Second, rle.RetryAfter)
	assert.Contains(t, rle.Body, "quota exceeded")
}

func TestPostJSON_MarshalError(t *testing.T) {
	c := llm.New("https://api.example.com", llm.Auth{}, nil)

	err := c.PostJSON(context.Background(), "/v1/chat", make(chan int), nil)
	assert.ErrorContains(t, err, "marshal payload")
}

func TestPostJSON_NilDest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := llm.New(srv.URL, llm.Auth{}, srv.Client())

	err := c.PostJSON(context.Background(), "/v1/chat", map[string]string{"model": "x"}, nil)
	assert.NoError(t, err)
}

func TestParseRetryAfter_Seconds(t *testing.T) {
	assert.Equal(t, 45*time.Second, llm.ParseRetryAfter("45"))
}

func TestParseRetryAfter_Empty(t *testing.T) {
	assert.Equal(t, time.Duration(0), llm.ParseRetryAfter(""))
}

func TestParseRetryAfter_PastDate(t *testing.T) {
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Equal(t, time.Duration(0), llm.ParseRetryAfter(past))
}

// --- Tracker tests ---

func TestTracker_AddAndTotal(t *testing.T) {
	var tr llm.Tracker

	tr.Add(llm.TokenCount{Input: 100, Output: 20})
	tr.Add(llm.TokenCount{Input: 50, Output: 10})

	assert.Equal(t, 2, tr.Calls())
	assert.Equal(t, llm.TokenCount{Input: 150, Output: 30}, tr.Total())
	assert.Equal(t, 180, tr.Total().Total())
}

func TestTracker_Reset(t *testing.T) {
	var tr llm.Tracker

	tr.Add(llm.TokenCount{Input: 10, Output: 5})
	tr.Reset()

	assert.Equal(t, 0, tr.Calls())
	assert.Equal(t, llm.TokenCount{}, tr.Total())
}
