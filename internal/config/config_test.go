package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "mock", cfg.LM.Provider)
	require.Equal(t, 4096, cfg.LM.MaxTokens)
	require.Equal(t, 384, cfg.Embedding.Dim)
	require.Equal(t, 30, cfg.Retrieval.TopK)
	require.Equal(t, 8, cfg.Binding.MaxChainDepth)
}

func TestLoad_RejectsInvalidEnvValue(t *testing.T) {
	t.Setenv("CONTRACTOS_LM_MAX_TOKENS", "not-an-int")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_TOMLOverlayWinsOverEnvDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contractos.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[lm]
provider = "mock"
model = "mock-v2"

[retrieval]
top_k = 50
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "mock-v2", cfg.LM.Model)
	require.Equal(t, 50, cfg.Retrieval.TopK)
	require.Equal(t, 4096, cfg.LM.MaxTokens, "keys absent from the file keep the env-derived default")
}

func TestValidate_RequiresAPIKeyForOpenAI(t *testing.T) {
	t.Setenv("CONTRACTOS_LM_PROVIDER", "openai")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.LM.Provider = "carrier-pigeon"
	require.Error(t, cfg.Validate())
}
