// Package lm defines the language-model capability the document agent,
// clause classifier, and discovery subsystem call through (spec §4.9).
// Every concrete provider is a thin JSON-over-HTTP client shaped after the
// teacher's internal/service/embedding.OpenAIProvider: explicit request and
// response structs, a bounded *http.Client, and an io.LimitReader on the
// response body.
package lm

import "context"

// GenerateOptions bounds a single completion request.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	// SystemPrompt, when non-empty, is sent as a separate system message on
	// providers that support one; providers without a system-role concept
	// prepend it to the user prompt.
	SystemPrompt string
}

// Provider is the capability interface spec.md §4.9 names. Generate returns
// raw text; callers that need structured output validate it themselves
// against a jsonschema.Schema (spec.md's "never trust the LM's JSON blindly").
type Provider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Name() string
}

// Embedder is an optional extension interface. The root contractos package
// type-asserts a Provider for it; when the Provider doesn't implement it,
// internal/embedindex gets no embedder and uses only its lexical search
// (spec.md §4.6, §4.9).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
