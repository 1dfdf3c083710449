package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const deepseekEndpoint = "https://api.deepseek.com/v1/chat/completions"

// deepseekClient is the Briefer backed by DeepSeek's OpenAI-compatible chat
// completions endpoint.
type deepseekClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewDeepSeekClient returns a Briefer that calls the DeepSeek API with
// DEEPSEEK_API_KEY and a model such as "deepseek-chat".
func NewDeepSeekClient(apiKey, model string) Briefer {
	return &deepseekClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   deepseekEndpoint,
		httpClient: newHTTPClient(),
	}
}

// ─── CHAT COMPLETIONS SHAPES ──────────────────────────────────────────────────

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

func (r *completionResponse) failure() *apiError { return r.Error }

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Brief asks DeepSeek for the counsellor briefing in json_object mode.
func (c *deepseekClient) Brief(ctx context.Context, in BriefingInput) (Briefing, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	req := completionRequest{
		Model:     c.model,
		MaxTokens: briefingTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(in)},
		},
	}
	req.ResponseFormat.Type = "json_object"

	var resp completionResponse
	if err := postJSON(ctx, c.httpClient, c.endpoint, header, req, &resp); err != nil {
		return Briefing{}, fmt.Errorf("deepseek: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Briefing{}, errors.New("deepseek: no choices in response")
	}

	b, err := parseBriefing(resp.Choices[0].Message.Content)
	if err != nil {
		return Briefing{}, fmt.Errorf("deepseek: %w", err)
	}
	return b, nil
}
