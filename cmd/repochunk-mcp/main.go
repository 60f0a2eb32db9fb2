// cmd/repochunk-mcp/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"repochunk/internal/config"
	"repochunk/internal/mcp"
)

var rootCmd = &cobra.Command{
	Use:   "repochunk-mcp",
	Short: "MCP server for codebase chunking",
	Long:  `An MCP (Model Context Protocol) server that exposes codebase chunking tools to LLM agents.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long:  `Start the MCP server listening on stdin/stdout for JSON-RPC messages.`,
	RunE:  runServe,
}

var (
	logFile    string
	configFlag string
)

func init() {
	serveCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (defaults to ~/.cache/repochunk-mcp/server.log)")
	serveCmd.Flags().StringVar(&configFlag, "config", "", "Config file path (defaults to ~/.config/repochunk/config.yaml)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Set up logging to file (NOT stdout - that's for MCP protocol)
	logger, cleanup, err := setupLogging()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	logger.Info("starting MCP server", "name", mcp.ServerName, "version", mcp.ServerVersion)

	// Load configuration
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	srv := mcp.NewServer(cfg, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("CHUNK_CONFIG"); env != "" {
		return env
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repochunk-config.yaml"
	}
	return filepath.Join(homeDir, ".config", "repochunk", "config.yaml")
}

func setupLogging() (*slog.Logger, func(), error) {
	path := logFile
	if path == "" {
		// Default to ~/.cache/repochunk-mcp/server.log
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = "/tmp"
		}
		logDir := filepath.Join(cacheDir, "repochunk-mcp")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		path = filepath.Join(logDir, "server.log")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cleanup := func() {
		file.Close()
	}

	return logger, cleanup, nil
}
