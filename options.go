package contractos

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	configPath        string
	storagePath       string
	indexDir          string
	logger            *slog.Logger
	version           string
	lmProvider        LMProvider
	embedder          Embedder
	extractionVersion string
}

// WithConfigFile points New at a contractos.toml file overlaying the
// CONTRACTOS_* environment variables (internal/config.Load).
func WithConfigFile(path string) Option {
	return func(o *resolvedOptions) { o.configPath = path }
}

// WithStoragePath overrides the SQLite TrustGraph database path
// (CONTRACTOS_STORAGE_PATH env var).
func WithStoragePath(path string) Option {
	return func(o *resolvedOptions) { o.storagePath = path }
}

// WithIndexDir sets the directory the semantic embedding index writes its
// per-document vector files and sidecars to.
func WithIndexDir(dir string) Option {
	return func(o *resolvedOptions) { o.indexDir = dir }
}

// WithLogger sets the structured logger for the App. If not set, the
// default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in telemetry resource attributes.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithLMProvider replaces the auto-selected language model provider
// (CONTRACTOS_LM_PROVIDER env var: mock | claude | openai | local).
func WithLMProvider(p LMProvider) Option {
	return func(o *resolvedOptions) { o.lmProvider = p }
}

// WithEmbedder replaces the auto-selected embedding provider used by the
// semantic index. Leave unset to fall back to lexical retrieval.
func WithEmbedder(e Embedder) Option {
	return func(o *resolvedOptions) { o.embedder = e }
}

// WithExtractionVersion overrides the extraction_version stamped onto every
// ingested Contract (CONTRACTOS_EXTRACTION_VERSION env var).
func WithExtractionVersion(version string) Option {
	return func(o *resolvedOptions) { o.extractionVersion = version }
}
