// Package config provides layered YAML configuration for the chunking tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds global configuration
type Config struct {
	Chunking ChunkingConfig `yaml:"chunking"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ChunkingConfig struct {
	Strategy      string `yaml:"strategy"` // file|directory|semantic|hybrid
	MaxTokens     int    `yaml:"max_tokens"`
	OverlapTokens int    `yaml:"overlap_tokens"`
	Model         string `yaml:"model"`    // tokenizer model, empty = heuristic
	Workers       int    `yaml:"workers"`  // 0 = one per CPU
	RedactSecrets bool   `yaml:"redact_secrets"`
}

type IngestConfig struct {
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size"` // bytes, 0 = 10 MiB
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // error|warn|info|debug
	Format string `yaml:"format"` // text|json
}

type MetricsConfig struct {
	LogPath string `yaml:"log_path"` // empty disables the metrics log
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy:      "hybrid",
			MaxTokens:     100000,
			OverlapTokens: 500,
		},
		Ingest: IngestConfig{
			MaxFileSize: 10 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads config from file or returns defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// RepoConfigName is the per-source override file looked up at the source root.
const RepoConfigName = ".repochunk.yaml"

// LoadRepoConfig merges a source tree's override file into a copy of base.
// A missing override file returns the copy unchanged.
func LoadRepoConfig(root string, base *Config) (*Config, error) {
	merged := *base
	// Decoding reuses slice backing arrays, so give the copy its own.
	merged.Ingest.Include = append([]string(nil), base.Ingest.Include...)
	merged.Ingest.Exclude = append([]string(nil), base.Ingest.Exclude...)

	data, err := os.ReadFile(filepath.Join(root, RepoConfigName))
	if err != nil {
		if os.IsNotExist(err) {
			return &merged, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", RepoConfigName, err)
	}

	return &merged, nil
}
