package lm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/segmentio/encoding/json"
)

// LocalProvider talks to an Ollama-compatible /api/generate endpoint.
// Selected by lm.provider=local; needs no api key.
type LocalProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewLocalProvider(baseURL, model string) *LocalProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &LocalProvider{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *LocalProvider) Name() string { return "local" }

type ollamaGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	System  string `json:"system,omitempty"`
	Stream  bool   `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature,omitempty"`
	} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *LocalProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqPayload := ollamaGenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		System: opts.SystemPrompt,
		Stream: false,
	}
	reqPayload.Options.Temperature = opts.Temperature

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("lm: local: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("lm: local: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lm: local: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("lm: local: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lm: local: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("lm: local: unmarshal response: %w", err)
	}
	return result.Response, nil
}

// Reachable pings Ollama's root endpoint, grounded on the teacher's
// ollamaReachable health-check used before wiring a local provider at startup.
func (p *LocalProvider) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
