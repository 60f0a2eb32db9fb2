package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"repochunk/internal/config"
	"repochunk/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Analyze chunking run metrics",
	Long:  `Analyze chunking run metrics from the metrics log file.`,
	RunE:  runStats,
}

var (
	statsSince  string
	statsErrors bool
	statsJSON   bool
	statsLog    string
)

func init() {
	statsCmd.Flags().StringVar(&statsSince, "last", "7d", "Time period (e.g., 1h, 24h, 7d, 30d)")
	statsCmd.Flags().BoolVar(&statsErrors, "errors", false, "Show only error counts by operation")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().StringVar(&statsLog, "metrics-log", "", "Metrics log path (default: configured or ~/.local/share/repochunk/metrics.jsonl)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	// Parse duration
	duration, err := parseDuration(statsSince)
	if err != nil {
		return fmt.Errorf("invalid time period: %w", err)
	}

	// Resolve metrics path
	metricsPath := statsLog
	if metricsPath == "" {
		if cfg, err := config.LoadConfig(globalConfigPath()); err == nil {
			metricsPath = cfg.Metrics.LogPath
		}
	}
	if metricsPath == "" {
		homeDir, _ := os.UserHomeDir()
		metricsPath = filepath.Join(homeDir, ".local", "share", "repochunk", "metrics.jsonl")
	}

	if _, err := os.Stat(metricsPath); os.IsNotExist(err) {
		fmt.Println("No metrics data found. Run chunk with --metrics-log to generate metrics.")
		return nil
	}

	analyzer := metrics.NewAnalyzer(metricsPath)

	if statsErrors {
		errCounts, err := analyzer.GetErrors(duration)
		if err != nil {
			return err
		}

		if statsJSON {
			data, _ := json.MarshalIndent(errCounts, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Printf("Errors by operation (last %s):\n\n", statsSince)
			if len(errCounts) == 0 {
				fmt.Println("  No errors recorded.")
			}
			for _, e := range errCounts {
				fmt.Printf("  - %s: %d\n", e.Operation, e.Count)
			}
		}
		return nil
	}

	summary, err := analyzer.Analyze(duration)
	if err != nil {
		return err
	}

	if statsJSON {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Chunk Run Summary (last %s):\n\n", statsSince)
		fmt.Printf("  Total runs:       %d\n", summary.TotalRuns)
		fmt.Printf("  Avg duration:     %dms\n", summary.AvgDurationMs)
		fmt.Printf("  Files processed:  %d\n", summary.TotalFiles)
		fmt.Printf("  Chunks produced:  %d\n", summary.TotalChunks)
		fmt.Printf("  Tokens emitted:   %d\n", summary.TotalTokens)
		fmt.Printf("  Forced splits:    %d\n", summary.ForcedSplits)
		fmt.Printf("  Oversized chunks: %d\n", summary.OversizedChunks)
		fmt.Printf("  Partial runs:     %d\n", summary.PartialRuns)
		fmt.Printf("  Errors:           %d\n", summary.ErrorCount)
		fmt.Println()
		if len(summary.RunsByStrategy) > 0 {
			fmt.Println("  Runs by strategy:")
			for s, c := range summary.RunsByStrategy {
				fmt.Printf("    - %s: %d\n", s, c)
			}
			fmt.Println()
		}
		if len(summary.TopSources) > 0 {
			fmt.Println("  Top sources:")
			for _, sc := range summary.TopSources {
				fmt.Printf("    - %s (%d runs)\n", sc.Source, sc.Count)
			}
		}
	}

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	// Handle day suffix
	if len(s) > 0 && s[len(s)-1] == 'd' {
		days := s[:len(s)-1]
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err == nil {
			return time.Duration(d) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
