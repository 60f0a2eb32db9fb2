package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"repochunk/internal/config"
	"repochunk/internal/ingest"
)

var scanCmd = &cobra.Command{
	Use:   "scan [source]",
	Short: "Report file, byte, token, and language totals without chunking",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var (
	scanInclude []string
	scanExclude []string
	scanModel   string
	scanJSON    bool
)

func init() {
	scanCmd.Flags().StringSliceVar(&scanInclude, "include", nil, "Glob patterns for files to include")
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "Glob patterns for files to exclude")
	scanCmd.Flags().StringVar(&scanModel, "model", "", "Tokenizer model for exact counts (default: fast heuristic)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(scanCmd)
}

type scanReport struct {
	Source      string         `json:"source"`
	Files       int            `json:"files"`
	TotalBytes  int64          `json:"total_bytes"`
	TotalTokens int            `json:"total_tokens"`
	Languages   map[string]int `json:"languages"`
}

func runScan(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		cfg, err = config.LoadRepoConfig(source, cfg)
		if err != nil {
			return fmt.Errorf("failed to load repo config: %w", err)
		}
	}
	if len(scanInclude) > 0 {
		cfg.Ingest.Include = scanInclude
	}
	if len(scanExclude) > 0 {
		cfg.Ingest.Exclude = scanExclude
	}
	if scanModel != "" {
		cfg.Chunking.Model = scanModel
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	ing := ingest.New(ingest.Options{
		Include:     cfg.Ingest.Include,
		Exclude:     cfg.Ingest.Exclude,
		MaxFileSize: cfg.Ingest.MaxFileSize,
	}, logger)

	files, err := ing.Load(ctx, source)
	if err != nil {
		return fmt.Errorf("loading %s: %w", source, err)
	}

	counter := counterFor(cfg, logger)

	report := scanReport{
		Source:    source,
		Files:     len(files),
		Languages: make(map[string]int),
	}
	for _, f := range files {
		n, err := counter.Count(ctx, f.Content)
		if err != nil {
			return fmt.Errorf("counting tokens in %s: %w", f.Path, err)
		}
		report.TotalBytes += f.Size
		report.TotalTokens += n

		lang := f.Language
		if lang == "" {
			lang = "other"
		}
		report.Languages[lang]++
	}

	if scanJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Scan of %s:\n\n", source)
	fmt.Printf("  Files:        %d\n", report.Files)
	fmt.Printf("  Total bytes:  %d\n", report.TotalBytes)
	fmt.Printf("  Total tokens: %d\n", report.TotalTokens)

	if len(report.Languages) > 0 {
		type langCount struct {
			name  string
			count int
		}
		var langs []langCount
		for name, count := range report.Languages {
			langs = append(langs, langCount{name, count})
		}
		sort.Slice(langs, func(i, j int) bool {
			if langs[i].count != langs[j].count {
				return langs[i].count > langs[j].count
			}
			return langs[i].name < langs[j].name
		})

		fmt.Println()
		fmt.Println("  Languages:")
		for _, lc := range langs {
			fmt.Printf("    - %s: %d\n", lc.name, lc.count)
		}
	}

	return nil
}
