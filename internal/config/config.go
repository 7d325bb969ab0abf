// Package config loads and validates application configuration from
// environment variables, with an optional TOML file overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every dotted configuration key enumerated in the core's
// external interface (spec §6).
type Config struct {
	LM         LMConfig
	Extraction ExtractionConfig
	Storage    StorageConfig
	Embedding  EmbeddingConfig
	Workspace  WorkspaceConfig
	Retrieval  RetrievalConfig
	Classifier ClassifierConfig
	Binding    BindingConfig

	LogLevel     string
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string
}

// LMConfig configures the language-model provider.
type LMConfig struct {
	Provider    string // claude | mock | openai | local
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	APIKey      string
	BaseURL     string // used by the local (Ollama) provider
}

// ExtractionConfig configures the pattern extractor.
type ExtractionConfig struct {
	Version               string
	PatternTimeoutSeconds int
}

// StorageConfig configures the TrustGraph store.
type StorageConfig struct {
	Path string
	WAL  bool
}

// EmbeddingConfig configures the embedding index.
type EmbeddingConfig struct {
	ModelID   string
	Dim       int
	BatchSize int
}

// WorkspaceConfig configures workspace/session behavior.
type WorkspaceConfig struct {
	HistoryLimit int
}

// RetrievalConfig configures the document agent's retrieval step.
type RetrievalConfig struct {
	TopK int
}

// ClassifierConfig configures the clause classifier's pattern stage.
type ClassifierConfig struct {
	PatternConfidenceFloor float64
	PatternMargin          float64
}

// BindingConfig configures the binding resolver.
type BindingConfig struct {
	MaxChainDepth int
}

// tomlFile mirrors the dotted-key layout of contractos.toml so BurntSushi/toml
// can decode it directly; fields absent from the file leave the env-derived
// default in place.
type tomlFile struct {
	LM struct {
		Provider    string  `toml:"provider"`
		Model       string  `toml:"model"`
		MaxTokens   int     `toml:"max_tokens"`
		Temperature float64 `toml:"temperature"`
		APIKey      string  `toml:"api_key"`
		BaseURL     string  `toml:"base_url"`
	} `toml:"lm"`
	Extraction struct {
		Version               string `toml:"version"`
		PatternTimeoutSeconds int    `toml:"pattern_timeout_seconds"`
	} `toml:"extraction"`
	Storage struct {
		Path string `toml:"path"`
		WAL  bool   `toml:"wal"`
	} `toml:"storage"`
	Embedding struct {
		ModelID   string `toml:"model_id"`
		Dim       int    `toml:"dim"`
		BatchSize int    `toml:"batch_size"`
	} `toml:"embedding"`
	Workspace struct {
		HistoryLimit int `toml:"history_limit"`
	} `toml:"workspace"`
	Retrieval struct {
		TopK int `toml:"top_k"`
	} `toml:"retrieval"`
	Classifier struct {
		PatternConfidenceFloor float64 `toml:"pattern_confidence_floor"`
		PatternMargin          float64 `toml:"pattern_margin"`
	} `toml:"classifier"`
	Binding struct {
		MaxChainDepth int `toml:"max_chain_depth"`
	} `toml:"binding"`
}

// Load reads configuration from environment variables with sensible
// defaults, then overlays an optional TOML file at tomlPath if non-empty and
// present on disk. Explicit Option overrides applied by the caller win over
// both layers. Returns an error if any environment variable or file value is
// unparseable or fails Validate.
func Load(tomlPath string) (Config, error) {
	var errs []error
	cfg := Config{
		LM: LMConfig{
			Provider: envStr("CONTRACTOS_LM_PROVIDER", "mock"),
			Model:    envStr("CONTRACTOS_LM_MODEL", "mock-v1"),
			APIKey:   envStr("CONTRACTOS_LM_API_KEY", ""),
			BaseURL:  envStr("CONTRACTOS_LM_BASE_URL", "http://localhost:11434"),
		},
		Extraction: ExtractionConfig{
			Version: envStr("CONTRACTOS_EXTRACTION_VERSION", "v1"),
		},
		Storage: StorageConfig{
			Path: envStr("CONTRACTOS_STORAGE_PATH", "./contractos.db"),
		},
		Embedding: EmbeddingConfig{
			ModelID: envStr("CONTRACTOS_EMBEDDING_MODEL_ID", "lexical-fallback"),
		},
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "contractos"),
		LogLevel:     envStr("CONTRACTOS_LOG_LEVEL", "info"),
	}

	cfg.LM.MaxTokens, errs = collectInt(errs, "CONTRACTOS_LM_MAX_TOKENS", 4096)
	cfg.LM.Temperature, errs = collectFloat(errs, "CONTRACTOS_LM_TEMPERATURE", 0.1)
	cfg.LM.Timeout, errs = collectDuration(errs, "CONTRACTOS_LM_TIMEOUT", 60*time.Second)
	cfg.Extraction.PatternTimeoutSeconds, errs = collectInt(errs, "CONTRACTOS_EXTRACTION_PATTERN_TIMEOUT_SECONDS", 60)
	cfg.Storage.WAL, errs = collectBool(errs, "CONTRACTOS_STORAGE_WAL", true)
	cfg.Embedding.Dim, errs = collectInt(errs, "CONTRACTOS_EMBEDDING_DIM", 384)
	cfg.Embedding.BatchSize, errs = collectInt(errs, "CONTRACTOS_EMBEDDING_BATCH_SIZE", 16)
	cfg.Workspace.HistoryLimit, errs = collectInt(errs, "CONTRACTOS_WORKSPACE_HISTORY_LIMIT", 10)
	cfg.Retrieval.TopK, errs = collectInt(errs, "CONTRACTOS_RETRIEVAL_TOP_K", 30)
	cfg.Classifier.PatternConfidenceFloor, errs = collectFloat(errs, "CONTRACTOS_CLASSIFIER_PATTERN_CONFIDENCE_FLOOR", 0.7)
	cfg.Classifier.PatternMargin, errs = collectFloat(errs, "CONTRACTOS_CLASSIFIER_PATTERN_MARGIN", 0.15)
	cfg.Binding.MaxChainDepth, errs = collectInt(errs, "CONTRACTOS_BINDING_MAX_CHAIN_DEPTH", 8)
	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if tomlPath != "" {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			var tf tomlFile
			if _, err := toml.DecodeFile(tomlPath, &tf); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", tomlPath, err)
			}
			cfg.overlay(tf)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlay applies non-zero-valued fields from a decoded TOML file on top of
// the env-derived config. Zero values in the file (an absent key) never
// clobber an env-set value.
func (c *Config) overlay(tf tomlFile) {
	if tf.LM.Provider != "" {
		c.LM.Provider = tf.LM.Provider
	}
	if tf.LM.Model != "" {
		c.LM.Model = tf.LM.Model
	}
	if tf.LM.MaxTokens != 0 {
		c.LM.MaxTokens = tf.LM.MaxTokens
	}
	if tf.LM.Temperature != 0 {
		c.LM.Temperature = tf.LM.Temperature
	}
	if tf.LM.APIKey != "" {
		c.LM.APIKey = tf.LM.APIKey
	}
	if tf.LM.BaseURL != "" {
		c.LM.BaseURL = tf.LM.BaseURL
	}
	if tf.Extraction.Version != "" {
		c.Extraction.Version = tf.Extraction.Version
	}
	if tf.Extraction.PatternTimeoutSeconds != 0 {
		c.Extraction.PatternTimeoutSeconds = tf.Extraction.PatternTimeoutSeconds
	}
	if tf.Storage.Path != "" {
		c.Storage.Path = tf.Storage.Path
	}
	c.Storage.WAL = c.Storage.WAL || tf.Storage.WAL
	if tf.Embedding.ModelID != "" {
		c.Embedding.ModelID = tf.Embedding.ModelID
	}
	if tf.Embedding.Dim != 0 {
		c.Embedding.Dim = tf.Embedding.Dim
	}
	if tf.Embedding.BatchSize != 0 {
		c.Embedding.BatchSize = tf.Embedding.BatchSize
	}
	if tf.Workspace.HistoryLimit != 0 {
		c.Workspace.HistoryLimit = tf.Workspace.HistoryLimit
	}
	if tf.Retrieval.TopK != 0 {
		c.Retrieval.TopK = tf.Retrieval.TopK
	}
	if tf.Classifier.PatternConfidenceFloor != 0 {
		c.Classifier.PatternConfidenceFloor = tf.Classifier.PatternConfidenceFloor
	}
	if tf.Classifier.PatternMargin != 0 {
		c.Classifier.PatternMargin = tf.Classifier.PatternMargin
	}
	if tf.Binding.MaxChainDepth != 0 {
		c.Binding.MaxChainDepth = tf.Binding.MaxChainDepth
	}
}

// Validate checks that configuration is present and sane, failing fast at startup.
func (c Config) Validate() error {
	var errs []error

	switch c.LM.Provider {
	case "claude", "mock", "openai", "local":
	default:
		errs = append(errs, fmt.Errorf("config: CONTRACTOS_LM_PROVIDER must be one of claude|mock|openai|local, got %q", c.LM.Provider))
	}
	if c.LM.MaxTokens <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_LM_MAX_TOKENS must be positive"))
	}
	if c.LM.Temperature < 0 || c.LM.Temperature > 2 {
		errs = append(errs, errors.New("config: CONTRACTOS_LM_TEMPERATURE must be in [0,2]"))
	}
	if c.LM.Timeout <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_LM_TIMEOUT must be positive"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("config: CONTRACTOS_STORAGE_PATH is required"))
	}
	if c.Embedding.Dim <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_EMBEDDING_DIM must be positive"))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_EMBEDDING_BATCH_SIZE must be positive"))
	}
	if c.Workspace.HistoryLimit <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_WORKSPACE_HISTORY_LIMIT must be positive"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_RETRIEVAL_TOP_K must be positive"))
	}
	if c.Classifier.PatternConfidenceFloor <= 0 || c.Classifier.PatternConfidenceFloor > 1 {
		errs = append(errs, errors.New("config: CONTRACTOS_CLASSIFIER_PATTERN_CONFIDENCE_FLOOR must be in (0,1]"))
	}
	if c.Binding.MaxChainDepth <= 0 {
		errs = append(errs, errors.New("config: CONTRACTOS_BINDING_MAX_CHAIN_DEPTH must be positive"))
	}
	if c.LM.Provider == "openai" && c.LM.APIKey == "" {
		errs = append(errs, errors.New("config: CONTRACTOS_LM_API_KEY is required when CONTRACTOS_LM_PROVIDER=openai"))
	}
	if c.LM.Provider == "claude" && c.LM.APIKey == "" {
		errs = append(errs, errors.New("config: CONTRACTOS_LM_API_KEY is required when CONTRACTOS_LM_PROVIDER=claude"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid float", key, v)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v, err := envFloat(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}
