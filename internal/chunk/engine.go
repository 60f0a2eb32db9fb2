package chunk

import (
	"context"
	"fmt"
	"log/slog"

	"repochunk/internal/token"
)

// Default budgets suit large-context models; callers tune per target model.
const (
	DefaultMaxTokens     = 100000
	DefaultOverlapTokens = 500
)

// Config controls a single chunking run.
type Config struct {
	// Strategy selects grouping; empty means DefaultStrategy.
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// MaxTokens caps every chunk. Single units larger than this still
	// become their own chunk, flagged Oversized.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// OverlapTokens bounds the context carried from the previous chunk.
	// Must be strictly less than MaxTokens.
	OverlapTokens int `json:"overlap_tokens" yaml:"overlap_tokens"`

	// Workers bounds per-file parallelism; <=0 means GOMAXPROCS-sized.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// ScanSecrets marks chunks whose content matches credential patterns.
	ScanSecrets bool `json:"scan_secrets,omitempty" yaml:"scan_secrets,omitempty"`
}

// DefaultChunkConfig returns the engine defaults used when a field is unset.
func DefaultChunkConfig() Config {
	return Config{
		Strategy:      DefaultStrategy,
		MaxTokens:     DefaultMaxTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

func (c *Config) validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalidConfig, c.MaxTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("%w: overlap_tokens must not be negative, got %d", ErrInvalidConfig, c.OverlapTokens)
	}
	if c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: overlap_tokens %d must be less than max_tokens %d",
			ErrInvalidConfig, c.OverlapTokens, c.MaxTokens)
	}
	return nil
}

// Engine partitions source files into token-bounded chunks. Construct once
// and reuse; runs are independent and safe to issue concurrently.
type Engine struct {
	counter token.Counter
	logger  *slog.Logger
}

func NewEngine(counter token.Counter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{counter: counter, logger: logger}
}

// Chunk runs one partitioning pass over files. The input slice is not
// mutated. On cancellation the chunks assembled so far are returned with
// Partial set alongside an error wrapping ErrCancelled; every other error
// returns a nil result.
func (e *Engine) Chunk(ctx context.Context, files []SourceFile, cfg Config) (*Result, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = DefaultStrategy
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if _, err := ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return &Result{
			Strategy: cfg.Strategy,
			Chunks:   []Chunk{},
			Stats:    e.stats(0, nil, nil, cfg),
		}, nil
	}

	est := NewSizeEstimator(e.counter)
	seg := NewUnitSegmenter(est)
	p, err := plannerFor(cfg.Strategy, seg, est, cfg.MaxTokens, cfg.Workers)
	if err != nil {
		return nil, err
	}

	ordered := p.groupingOrder(files)
	groups, err := p.planUnits(ctx, ordered)
	if err != nil {
		if ctx.Err() != nil {
			return e.partial(len(files), nil, nil, cfg, err)
		}
		return nil, fmt.Errorf("segmenting files: %w", err)
	}

	asm := NewChunkAssembler(est, newFileSet(ordered), cfg.MaxTokens, cfg.OverlapTokens)
	chunks, err := asm.Assemble(ctx, groups)
	if err != nil {
		if ctx.Err() != nil {
			return e.partial(len(files), chunks, groups, cfg, err)
		}
		return nil, fmt.Errorf("assembling chunks: %w", err)
	}
	if chunks == nil {
		chunks = []Chunk{}
	}

	if cfg.ScanSecrets {
		markSecrets(chunks)
	}

	res := &Result{
		Strategy: cfg.Strategy,
		Chunks:   chunks,
		Stats:    e.stats(len(files), chunks, groups, cfg),
	}
	e.logRun(res)
	return res, nil
}

func (e *Engine) partial(fileCount int, chunks []Chunk, groups []unitGroup, cfg Config, cause error) (*Result, error) {
	if chunks == nil {
		chunks = []Chunk{}
	}
	res := &Result{
		Strategy: cfg.Strategy,
		Chunks:   chunks,
		Stats:    e.stats(fileCount, chunks, groups, cfg),
		Partial:  true,
	}
	return res, fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func (e *Engine) stats(fileCount int, chunks []Chunk, groups []unitGroup, cfg Config) Stats {
	st := Stats{
		FileCount:         fileCount,
		ChunkCount:        len(chunks),
		MaxTokens:         cfg.MaxTokens,
		OverlapTokens:     cfg.OverlapTokens,
		TokenDistribution: make([]int, 0, len(chunks)),
	}
	for _, ch := range chunks {
		st.TotalTokens += ch.TokenCount
		st.TokenDistribution = append(st.TokenDistribution, ch.TokenCount)
		if ch.Oversized {
			st.OversizedChunks++
		}
	}
	for _, g := range groups {
		for _, u := range g.units {
			if u.Forced {
				st.ForcedSplits++
			}
		}
	}
	return st
}

func (e *Engine) logRun(res *Result) {
	e.logger.Info("chunking complete",
		"strategy", res.Strategy,
		"files", res.Stats.FileCount,
		"chunks", res.Stats.ChunkCount,
		"total_tokens", res.Stats.TotalTokens)
	if res.Stats.ForcedSplits > 0 {
		e.logger.Warn("some units were force-split mid-content",
			"forced_splits", res.Stats.ForcedSplits)
	}
	if res.Stats.OversizedChunks > 0 {
		e.logger.Warn("some chunks exceed the token budget",
			"oversized_chunks", res.Stats.OversizedChunks,
			"max_tokens", res.Stats.MaxTokens)
	}
}
