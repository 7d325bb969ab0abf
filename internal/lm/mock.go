package lm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// MockProvider is deterministic: the same prompt always produces the same
// response, keyed by the prompt's SHA-256 hash. Every test in this module and
// internal/classify's LLM fallback stage exercises this provider rather than
// a live API (spec.md §9: "tests must not depend on network access").
type MockProvider struct {
	mu sync.RWMutex
	// Scripted maps a prompt hash (hex, full 64 chars) to a canned response,
	// for tests that need an exact, pre-written answer.
	Scripted map[string]string
	// Default, when Scripted has no entry for the prompt, is returned verbatim.
	// An empty Default falls back to echoing a deterministic placeholder so
	// callers that forgot to script a response still get reproducible output.
	Default string
}

// NewMockProvider builds a MockProvider with no scripted responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{Scripted: map[string]string{}}
}

// Script registers a canned response for the exact given prompt.
func (m *MockProvider) Script(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scripted[PromptHash(prompt)] = response
}

// PromptHash is exported so callers can pre-compute keys for Script without
// needing MockProvider internals.
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Generate(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if resp, ok := m.Scripted[PromptHash(prompt)]; ok {
		return resp, nil
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return fmt.Sprintf(`{"mock_response_for_hash":%q}`, PromptHash(prompt)[:16]), nil
}

// Embed produces a deterministic pseudo-embedding derived from each text's
// hash, spreading bytes across Dimensions() floats in [-1, 1]. Good enough to
// exercise cosine-similarity math in tests without a real embedding model.
func (m *MockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbedding(t, m.Dimensions())
	}
	return out, nil
}

func (m *MockProvider) Dimensions() int { return 32 }

func hashEmbedding(text string, dim int) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := range vec {
		b := sum[i%len(sum)]
		vec[i] = (float32(b)/255.0)*2 - 1
	}
	return vec
}
