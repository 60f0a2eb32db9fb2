// cmd/repochunk/main.go
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"repochunk/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "repochunk",
	Short: "Token-bounded codebase chunking for LLM context windows",
	Long:  `Partition a codebase into an ordered sequence of overlapping chunks that each fit a model context window.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("repochunk v0.1.0")
	},
}

var configFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file path (defaults to ~/.config/repochunk/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalConfigPath resolves the config location: --config flag, then the
// CHUNK_CONFIG environment variable, then the user config dir.
func globalConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("CHUNK_CONFIG"); env != "" {
		return env
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory config
		return ".repochunk-config.yaml"
	}
	return filepath.Join(homeDir, ".config", "repochunk", "config.yaml")
}

// newLogger builds the CLI logger on stderr; stdout stays clean for command
// output.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
