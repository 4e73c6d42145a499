// Package gemini provides a Completer implementation for the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/germanamz/commitgen/pkg/llm"
)

// DefaultBaseURL is the production Gemini API endpoint (no trailing slash).
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultModel is the model used when the caller does not pick one.
const DefaultModel = "gemini-1.5-flash"

var _ llm.Completer = (*Adapter)(nil)

// Adapter implements llm.Completer for the Google Gemini API.
type Adapter struct {
	llm.Client
}

// New creates an Adapter configured for the Gemini API.
// An empty baseURL falls back to DefaultBaseURL, an empty model to DefaultModel.
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = llm.Auth{
		Key:    apiKey,
		Header: "x-goog-api-key",
	}
	a.Model = model
	a.MaxTokens = 8192

	return a
}

// Complete sends a single-turn request to the Gemini API and returns the
// concatenated text of the first candidate.
func (a *Adapter) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := a.buildRequest(req)
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", a.Model)

	var resp apiResponse
	if err := a.PostJSON(ctx, path, body, &resp); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: empty candidates in response")
	}

	a.Usage.Add(llm.TokenCount{
		Input:  resp.UsageMetadata.PromptTokenCount,
		Output: resp.UsageMetadata.CandidatesTokenCount,
	})

	return candidateText(resp.Candidates[0]), nil
}

// --- request types ---

type apiRequest struct {
	Contents          []apiContent     `json:"contents"`
	SystemInstruction *apiContent      `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
}

// --- response types ---

type apiResponse struct {
	Candidates    []apiCandidate `json:"candidates"`
	UsageMetadata apiUsageMeta   `json:"usageMetadata"`
}

type apiCandidate struct {
	Content      apiContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type apiUsageMeta struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func (a *Adapter) buildRequest(req llm.Request) apiRequest {
	out := apiRequest{
		Contents: []apiContent{{
			Role:  "user",
			Parts: []apiPart{{Text: req.User}},
		}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: a.MaxTokens,
		},
	}

	if a.Temperature != 0 {
		t := a.Temperature
		out.GenerationConfig.Temperature = &t
	}

	if req.System != "" {
		out.SystemInstruction = &apiContent{
			Parts: []apiPart{{Text: req.System}},
		}
	}

	return out
}

// candidateText concatenates the text parts of a candidate. Gemini may split
// a reply across several parts.
func candidateText(cand apiCandidate) string {
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
