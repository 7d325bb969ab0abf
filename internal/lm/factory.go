package lm

import "fmt"

// Config mirrors the lm.* keys validated by the root config loader
// (spec.md §6: "requires lm.api_key when provider is openai or claude").
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	LocalURL  string
}

// New selects a concrete Provider by name, grounded on the teacher's
// newEmbeddingProvider switch in akashi.go.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "claude":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model)
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model)
	case "local":
		return NewLocalProvider(cfg.LocalURL, cfg.Model), nil
	case "mock", "":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("lm: unknown provider %q", cfg.Provider)
	}
}
