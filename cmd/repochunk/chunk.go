// cmd/repochunk/chunk.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"repochunk/internal/chunk"
	"repochunk/internal/config"
	"repochunk/internal/ingest"
	"repochunk/internal/metrics"
	"repochunk/internal/security"
	"repochunk/internal/token"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [source]",
	Short: "Chunk a codebase into token-bounded pieces",
	Long:  `Ingest a local directory, single file, or remote git repository and partition it into chunks that each fit a model context window.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

var (
	chunkStrategy   string
	chunkMaxTokens  int
	chunkOverlap    int
	chunkInclude    []string
	chunkExclude    []string
	chunkModel      string
	chunkOut        string
	chunkJSON       bool
	chunkRedact     bool
	chunkWorkers    int
	chunkMetricsLog string
)

func init() {
	chunkCmd.Flags().StringVar(&chunkStrategy, "strategy", "", "Chunking strategy: file, directory, semantic, hybrid")
	chunkCmd.Flags().IntVar(&chunkMaxTokens, "max-tokens", 0, "Token budget per chunk")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap-tokens", 0, "Tokens carried over from the previous chunk")
	chunkCmd.Flags().StringSliceVar(&chunkInclude, "include", nil, "Glob patterns for files to include")
	chunkCmd.Flags().StringSliceVar(&chunkExclude, "exclude", nil, "Glob patterns for files to exclude")
	chunkCmd.Flags().StringVar(&chunkModel, "model", "", "Tokenizer model for exact counts (default: fast heuristic)")
	chunkCmd.Flags().StringVar(&chunkOut, "out", "chunks", "Output directory for chunk files")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "Print the full result as JSON instead of writing files")
	chunkCmd.Flags().BoolVar(&chunkRedact, "redact", false, "Redact detected secrets in chunk content")
	chunkCmd.Flags().IntVar(&chunkWorkers, "workers", 0, "Per-file parallelism (0 = one per CPU)")
	chunkCmd.Flags().StringVar(&chunkMetricsLog, "metrics-log", "", "Append run metrics to this JSONL file")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := chunkConfigFromFlags(cmd, source)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	result, duration, err := chunkOnce(context.Background(), cfg, source, logger)
	if err != nil {
		return err
	}

	logRunMetrics(cfg, source, result, duration, logger)

	if chunkJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if err := writeOutputs(result, chunkOut); err != nil {
		return err
	}

	// Report results
	fmt.Printf("Chunking complete:\n")
	fmt.Printf("  Files:        %d\n", result.Stats.FileCount)
	fmt.Printf("  Chunks:       %d\n", result.Stats.ChunkCount)
	fmt.Printf("  Total tokens: %d\n", result.Stats.TotalTokens)
	if result.Stats.OversizedChunks > 0 {
		fmt.Printf("  Oversized:    %d chunks exceed the token budget\n", result.Stats.OversizedChunks)
	}
	if result.Stats.ForcedSplits > 0 {
		fmt.Printf("  Forced cuts:  %d units split without a clean boundary\n", result.Stats.ForcedSplits)
	}
	fmt.Printf("  Output:       %s\n", chunkOut)

	return nil
}

// chunkConfigFromFlags layers the run config: defaults, global file, per-repo
// override file, then explicit flags.
func chunkConfigFromFlags(cmd *cobra.Command, source string) (*config.Config, error) {
	cfg, err := config.LoadConfig(globalConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Per-repo overrides apply to local directory sources only.
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		cfg, err = config.LoadRepoConfig(source, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load repo config: %w", err)
		}
	}

	flags := cmd.Flags()
	if chunkStrategy != "" {
		cfg.Chunking.Strategy = chunkStrategy
	}
	if flags.Changed("max-tokens") {
		cfg.Chunking.MaxTokens = chunkMaxTokens
	}
	if flags.Changed("overlap-tokens") {
		cfg.Chunking.OverlapTokens = chunkOverlap
	}
	if chunkModel != "" {
		cfg.Chunking.Model = chunkModel
	}
	if flags.Changed("workers") {
		cfg.Chunking.Workers = chunkWorkers
	}
	if chunkRedact {
		cfg.Chunking.RedactSecrets = true
	}
	if len(chunkInclude) > 0 {
		cfg.Ingest.Include = chunkInclude
	}
	if len(chunkExclude) > 0 {
		cfg.Ingest.Exclude = chunkExclude
	}
	if chunkMetricsLog != "" {
		cfg.Metrics.LogPath = chunkMetricsLog
	}
	if cfg.Metrics.LogPath == "" {
		cfg.Metrics.LogPath = os.Getenv("CHUNK_METRICS_LOG")
	}

	return cfg, nil
}

// chunkOnce runs the full ingest-and-chunk pipeline for one source.
func chunkOnce(ctx context.Context, cfg *config.Config, source string, logger *slog.Logger) (*chunk.Result, time.Duration, error) {
	ing := ingest.New(ingest.Options{
		Include:     cfg.Ingest.Include,
		Exclude:     cfg.Ingest.Exclude,
		MaxFileSize: cfg.Ingest.MaxFileSize,
	}, logger)

	files, err := ing.Load(ctx, source)
	if err != nil {
		return nil, 0, fmt.Errorf("loading %s: %w", source, err)
	}

	engine := chunk.NewEngine(counterFor(cfg, logger), logger)

	start := time.Now()
	result, err := engine.Chunk(ctx, files, chunk.Config{
		Strategy:      chunk.Strategy(cfg.Chunking.Strategy),
		MaxTokens:     cfg.Chunking.MaxTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
		Workers:       cfg.Chunking.Workers,
		ScanSecrets:   true,
	})
	duration := time.Since(start)
	if err != nil {
		return nil, duration, fmt.Errorf("chunking %s: %w", source, err)
	}

	result.Source = source
	if cfg.Chunking.RedactSecrets {
		redactChunks(result)
	}

	return result, duration, nil
}

// counterFor picks the token oracle: an empty model keeps the fast heuristic.
func counterFor(cfg *config.Config, logger *slog.Logger) token.Counter {
	if cfg.Chunking.Model == "" {
		return token.Heuristic{}
	}
	return token.NewCounter(cfg.Chunking.Model, logger)
}

// redactChunks rewrites flagged chunk content in place. Segments stay
// untouched; they describe the original bytes.
func redactChunks(result *chunk.Result) {
	sc := security.NewScanner()
	for i := range result.Chunks {
		if result.Chunks[i].HasSecrets {
			result.Chunks[i].Content = sc.Redact(result.Chunks[i].Content)
		}
	}
}

// writeOutputs writes one chunk_NNN.txt per chunk plus a result.json
// manifest. Chunk bodies live in the text files; the manifest keeps segments
// only.
func writeOutputs(result *chunk.Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	for _, c := range result.Chunks {
		name := filepath.Join(outDir, fmt.Sprintf("chunk_%03d.txt", c.Index))
		if err := os.WriteFile(name, []byte(c.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	manifest := *result
	manifest.Chunks = make([]chunk.Chunk, len(result.Chunks))
	copy(manifest.Chunks, result.Chunks)
	for i := range manifest.Chunks {
		manifest.Chunks[i].Content = ""
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "result.json"), append(data, '\n'), 0o644)
}

// logRunMetrics appends a chunk_run event when a metrics log is configured.
func logRunMetrics(cfg *config.Config, source string, result *chunk.Result, duration time.Duration, logger *slog.Logger) {
	if cfg.Metrics.LogPath == "" {
		return
	}

	ml, err := metrics.NewLogger(cfg.Metrics.LogPath)
	if err != nil {
		logger.Warn("metrics log unavailable", "path", cfg.Metrics.LogPath, "error", err)
		return
	}
	defer ml.Close()

	ml.LogChunkRun(metrics.RunRecord{
		Source:       source,
		Strategy:     string(result.Strategy),
		Files:        result.Stats.FileCount,
		Chunks:       result.Stats.ChunkCount,
		TotalTokens:  result.Stats.TotalTokens,
		Oversized:    result.Stats.OversizedChunks,
		ForcedSplits: result.Stats.ForcedSplits,
		DurationMs:   duration.Milliseconds(),
		Partial:      result.Partial,
	})
}
