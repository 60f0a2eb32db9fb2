package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repochunk/internal/config"
	"repochunk/internal/ingest"
	"repochunk/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [source]",
	Short: "Watch a source tree and rechunk on changes",
	Long:  `Run a foreground daemon that polls a local source tree and regenerates chunks whenever it changes.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var (
	watchInterval string
	watchOut      string
)

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "60s", "Poll interval (e.g., 30s, 5m)")
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "chunks", "Output directory for chunk files")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	source := args[0]

	if ingest.IsRemoteURL(source) {
		return fmt.Errorf("watch requires a local directory, got remote URL %s", source)
	}
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", source, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", source)
	}

	interval, err := time.ParseDuration(watchInterval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	cfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err = config.LoadRepoConfig(source, cfg)
	if err != nil {
		return fmt.Errorf("failed to load repo config: %w", err)
	}

	logger := newLogger(cfg)

	runFn := func(ctx context.Context) error {
		result, duration, err := chunkOnce(ctx, cfg, source, logger)
		if err != nil {
			return err
		}
		logRunMetrics(cfg, source, result, duration, logger)
		if err := writeOutputs(result, watchOut); err != nil {
			return err
		}
		logger.Info("chunks written",
			"chunks", result.Stats.ChunkCount,
			"total_tokens", result.Stats.TotalTokens,
			"dir", watchOut)
		return nil
	}

	walker := ingest.NewWalker(cfg.Ingest.Include, cfg.Ingest.Exclude)
	w := watch.NewWatcher(source, interval, walker, runFn, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
