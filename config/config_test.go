package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdirTemp isolates the test from any .aori config in the working directory.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, DefaultWSBaseURL, cfg.WSBaseURL)
	require.Empty(t, cfg.APIKey)
	require.False(t, cfg.LoadTokens)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("AORI_BASE_URL", "https://staging.example.com")
	t.Setenv("AORI_API_KEY", "k-123")
	t.Setenv("AORI_LOAD_TOKENS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://staging.example.com", cfg.BaseURL)
	require.Equal(t, "k-123", cfg.APIKey)
	require.True(t, cfg.LoadTokens)
}
