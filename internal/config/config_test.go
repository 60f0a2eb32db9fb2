package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "hybrid", cfg.Chunking.Strategy)
	assert.Equal(t, 100000, cfg.Chunking.MaxTokens)
	assert.Equal(t, 500, cfg.Chunking.OverlapTokens)
	assert.Empty(t, cfg.Chunking.Model)
	assert.False(t, cfg.Chunking.RedactSecrets)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxFileSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Metrics.LogPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `chunking:
  strategy: directory
  max_tokens: 4096
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "directory", cfg.Chunking.Strategy)
	assert.Equal(t, 4096, cfg.Chunking.MaxTokens)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Untouched sections keep their defaults.
	assert.Equal(t, 500, cfg.Chunking.OverlapTokens)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxFileSize)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [broken"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadRepoConfig(t *testing.T) {
	root := t.TempDir()
	data := `chunking:
  strategy: file
ingest:
  include:
    - "**/*.go"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, RepoConfigName), []byte(data), 0o644))

	base := DefaultConfig()
	base.Chunking.MaxTokens = 8000
	base.Ingest.Include = []string{"**/*.py"}

	merged, err := LoadRepoConfig(root, base)
	require.NoError(t, err)

	assert.Equal(t, "file", merged.Chunking.Strategy)
	assert.Equal(t, []string{"**/*.go"}, merged.Ingest.Include)
	// Fields the override file omits come from base.
	assert.Equal(t, 8000, merged.Chunking.MaxTokens)

	// base is not mutated by the merge.
	assert.Equal(t, "hybrid", base.Chunking.Strategy)
	assert.Equal(t, []string{"**/*.py"}, base.Ingest.Include)
}

func TestLoadRepoConfigMissing(t *testing.T) {
	base := DefaultConfig()
	base.Chunking.Strategy = "semantic"

	merged, err := LoadRepoConfig(t.TempDir(), base)
	require.NoError(t, err)
	assert.Equal(t, base, merged)
}

func TestLoadRepoConfigInvalid(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, RepoConfigName), []byte(":\t:"), 0o644))

	_, err := LoadRepoConfig(root, DefaultConfig())
	assert.Error(t, err)
}
