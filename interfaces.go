package contractos

import "context"

// GenerateOptions configures an LMProvider.Generate call.
type GenerateOptions struct {
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// LMProvider generates text completions for clause classification, the
// document agent, and discovery. When provided via WithLMProvider, replaces
// the auto-selected provider (mock/claude/openai/local) chosen from config.
// Uses plain types only, so an external implementation never needs to import
// internal/lm.
type LMProvider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Name() string
}

// Embedder generates vector embeddings for the semantic index. When provided
// via WithEmbedder, replaces the auto-selected embedder. An App with no
// Embedder configured (and no provider that also implements this interface)
// degrades every retrieval to lexical search (spec §4.6).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
