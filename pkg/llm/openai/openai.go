// Package openai provides a Completer implementation backed by the official
// openai-go SDK. It works against the OpenAI API and any server that speaks
// the chat completions protocol (set BaseURL accordingly).
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/germanamz/commitgen/pkg/llm"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the model used when the caller does not pick one.
const DefaultModel = "gpt-4o-mini"

var _ llm.Completer = (*Adapter)(nil)

// Adapter implements llm.Completer for chat-completions APIs via openai-go.
type Adapter struct {
	llm.Client
}

// New creates an Adapter. An empty baseURL uses the SDK's default endpoint,
// an empty model falls back to DefaultModel.
func New(baseURL, apiKey, model string) *Adapter {
	if model == "" {
		model = DefaultModel
	}

	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = llm.Auth{Key: apiKey}
	a.Model = model

	return a
}

// Complete sends a single-turn request through the chat completions endpoint
// and returns the first choice's message content.
func (a *Adapter) Complete(ctx context.Context, req llm.Request) (string, error) {
	client := oai.NewClient(a.requestOptions()...)

	var msgs []oai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, oai.SystemMessage(req.System))
	}
	msgs = append(msgs, oai.UserMessage(req.User))

	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(a.Model),
		Messages: msgs,
	}
	if a.Temperature != 0 {
		params.Temperature = oai.Float(a.Temperature)
	}
	if a.MaxTokens > 0 {
		params.MaxTokens = oai.Int(int64(a.MaxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	a.Usage.Add(llm.TokenCount{
		Input:  int(resp.Usage.PromptTokens),
		Output: int(resp.Usage.CompletionTokens),
	})

	return resp.Choices[0].Message.Content, nil
}

// requestOptions builds SDK options from the adapter's current settings so
// fields set after New are honored.
func (a *Adapter) requestOptions() []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(a.Auth.Key)}

	if a.BaseURL != "" {
		// The SDK resolves request paths relative to the base URL, so it
		// must end in a slash or the last path segment is dropped.
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(a.BaseURL, "/")+"/"))
	}

	if a.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(a.HTTPClient))
	}

	return opts
}
