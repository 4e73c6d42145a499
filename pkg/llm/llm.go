// Package llm defines the single-turn completion contract shared by the
// commit message pipeline, plus a base Client that concrete provider
// adapters embed to get HTTP helpers, auth, and usage tracking.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitError is returned when the API responds with HTTP 429 (Too Many Requests).
// It carries an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
		return 0
	}
	return 0
}

// Request is a single-turn completion request. System carries the
// instruction prompt, User the content the model should act on.
type Request struct {
	System string
	User   string
}

// Completer sends a single-turn request to an LLM and returns the raw text
// of the model's reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// UsageReporter provides token usage information from a completer.
// Completers that embed Client implement this interface automatically.
type UsageReporter interface {
	UsageTracker() *Tracker
}

// Auth holds authentication settings for an LLM provider API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// Client holds shared state for LLM provider adapters. Embed it in concrete
// provider structs to get HTTP helpers, auth, custom headers, and usage
// tracking. Concrete types should define their own Complete method to
// shadow the default stub.
type Client struct {
	Model       string            // Model identifier (e.g. "gemini-1.5-flash").
	Temperature float64           // Sampling temperature.
	MaxTokens   int               // Maximum tokens in the response.
	Auth        Auth              // Authentication settings.
	BaseURL     string            // API base URL (no trailing slash).
	HTTPClient  *http.Client      // HTTP client; falls back to a cached default.
	Headers     map[string]string // Extra headers applied to every request.
	Usage       Tracker           // Token usage tracker.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a Client with the given settings.
// A nil httpClient falls back to a default client at call time.
func New(baseURL string, auth Auth, httpClient *http.Client) Client {
	return Client{
		Auth:       auth,
		BaseURL:    baseURL,
		HTTPClient: httpClient,
	}
}

// UsageTracker returns the client's token usage tracker.
func (c *Client) UsageTracker() *Tracker { return &c.Usage }

// Complete is a stub that returns an error. Concrete providers that embed
// Client should define their own Complete method to shadow this one.
func (c *Client) Complete(_ context.Context, _ Request) (string, error) {
	return "", errors.New("llm: Complete not implemented")
}

// httpClient returns the configured client or a cached default client with a 2-minute timeout.
func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	c.clientOnce.Do(func() {
		c.defaultClient = &http.Client{Timeout: 2 * time.Minute}
	})

	return c.defaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	// Apply auth.
	if c.Auth.Key != "" {
		header := c.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := c.Auth.Key
		if header == "Authorization" {
			scheme := c.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if c.Auth.Scheme != "" {
			value = c.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	// Apply custom headers.
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// PostJSON marshals payload as JSON, sends a POST to the given path,
// checks for a 2xx status, and unmarshals the response body into dest.
// If dest is nil the response body is discarded after the status check.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := c.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
