package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// anthropicClient is the Briefer backed by the Anthropic Messages API.
type anthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewAnthropicClient returns a Briefer that calls the Anthropic API with
// ANTHROPIC_API_KEY and ANTHROPIC_MODEL.
func NewAnthropicClient(apiKey, model string) Briefer {
	return &anthropicClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   anthropicEndpoint,
		httpClient: newHTTPClient(),
	}
}

// ─── ANTHROPIC API SHAPES ─────────────────────────────────────────────────────

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *apiError `json:"error"`
}

func (r *messagesResponse) failure() *apiError { return r.Error }

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Brief asks Claude for the counsellor briefing. The model may wrap its JSON
// in a code fence; parseBriefing strips it.
func (c *anthropicClient) Brief(ctx context.Context, in BriefingInput) (Briefing, error) {
	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var resp messagesResponse
	err := postJSON(ctx, c.httpClient, c.endpoint, header, messagesRequest{
		Model:     c.model,
		MaxTokens: briefingTokens,
		System:    systemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: buildPrompt(in)}},
	}, &resp)
	if err != nil {
		return Briefing{}, fmt.Errorf("anthropic: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		b, err := parseBriefing(block.Text)
		if err != nil {
			return Briefing{}, fmt.Errorf("anthropic: %w", err)
		}
		return b, nil
	}
	return Briefing{}, errors.New("anthropic: no text content in response")
}
