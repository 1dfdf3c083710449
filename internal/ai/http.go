package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	providerTimeout  = 60 * time.Second
	maxResponseBytes = 1 << 20
	briefingTokens   = 1024
)

// apiError is the error envelope both providers put in a failed response.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// envelope is a provider response that may carry an apiError.
type envelope interface {
	failure() *apiError
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: providerTimeout}
}

// postJSON sends in as a JSON POST and decodes the reply into out. An error
// envelope in the body is reported ahead of a bare non-200 status.
func postJSON(ctx context.Context, hc *http.Client, endpoint string, header http.Header, in any, out envelope) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	decodeErr := json.Unmarshal(raw, out)
	if decodeErr == nil {
		if e := out.failure(); e != nil {
			return fmt.Errorf("API error %s: %s", e.Type, e.Message)
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, raw)
	}
	if decodeErr != nil {
		return fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	return nil
}
