package chunk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochunk/internal/token"
)

func newTestEngine() *Engine {
	return NewEngine(token.Heuristic{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDefaultChunkConfig(t *testing.T) {
	cfg := DefaultChunkConfig()
	assert.Equal(t, StrategyHybrid, cfg.Strategy)
	assert.Equal(t, 100000, cfg.MaxTokens)
	assert.Equal(t, 500, cfg.OverlapTokens)
}

func TestChunkRejectsBadConfig(t *testing.T) {
	e := newTestEngine()
	files := []SourceFile{{Path: "a.go", Content: "package a\n"}}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero max tokens", Config{MaxTokens: 0}},
		{"negative max tokens", Config{MaxTokens: -5}},
		{"negative overlap", Config{MaxTokens: 100, OverlapTokens: -1}},
		{"overlap equals max", Config{MaxTokens: 100, OverlapTokens: 100}},
		{"overlap above max", Config{MaxTokens: 100, OverlapTokens: 200}},
		{"unknown strategy", Config{Strategy: "banana", MaxTokens: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Chunk(context.Background(), files, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, res)
		})
	}

	// Config errors surface even when there is nothing to chunk.
	_, err := e.Chunk(context.Background(), nil, Config{Strategy: "banana", MaxTokens: 100})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChunkEmptyInput(t *testing.T) {
	e := newTestEngine()

	res, err := e.Chunk(context.Background(), nil, Config{MaxTokens: 100})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, StrategyHybrid, res.Strategy)
	assert.Empty(t, res.Chunks)
	assert.False(t, res.Partial)
	assert.Zero(t, res.Stats.ChunkCount)
	assert.Zero(t, res.Stats.TotalTokens)
}

func TestChunkEmptyFilesProduceNoChunks(t *testing.T) {
	e := newTestEngine()
	files := []SourceFile{{Path: "empty1.go"}, {Path: "empty2.go"}}

	for _, st := range []Strategy{StrategyFile, StrategyDirectory, StrategySemantic, StrategyHybrid} {
		t.Run(string(st), func(t *testing.T) {
			res, err := e.Chunk(context.Background(), files, Config{Strategy: st, MaxTokens: 100})
			require.NoError(t, err)
			assert.Empty(t, res.Chunks)
			assert.Equal(t, 2, res.Stats.FileCount)
		})
	}
}

func TestChunkDoesNotMutateInput(t *testing.T) {
	e := newTestEngine()
	files := []SourceFile{
		{Path: "zzz", Content: strings.Repeat("z", 40)},
		{Path: "aaa", Content: strings.Repeat("a", 40)},
	}

	_, err := e.Chunk(context.Background(), files, Config{Strategy: StrategyFile, MaxTokens: 100})
	require.NoError(t, err)

	assert.Equal(t, "zzz", files[0].Path)
	assert.Equal(t, "aaa", files[1].Path)
}

// Three whole files against a 100k budget: the first two share a chunk, the
// third opens its own. No unit fits the 500-token window, so the second
// chunk carries no overlap.
func TestChunkLargeWholeFiles(t *testing.T) {
	e := newTestEngine()
	files := []SourceFile{
		{Path: "aaa", Content: strings.Repeat("a", 160000)}, // 40k tokens
		{Path: "bbb", Content: strings.Repeat("b", 120000)}, // 30k tokens
		{Path: "ccc", Content: strings.Repeat("c", 360000)}, // 90k tokens
	}

	res, err := e.Chunk(context.Background(), files, Config{
		Strategy:      StrategyFile,
		MaxTokens:     100000,
		OverlapTokens: 500,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)

	assert.Equal(t, []string{"aaa", "bbb"}, res.Chunks[0].Files)
	assert.Equal(t, 70054, res.Chunks[0].TokenCount)

	assert.Equal(t, []string{"ccc"}, res.Chunks[1].Files)
	assert.Equal(t, 90027, res.Chunks[1].TokenCount)
	assert.Empty(t, res.Chunks[1].Overlap)
	assert.Zero(t, res.Chunks[1].OverlapTokens)

	for _, ch := range res.Chunks {
		assert.LessOrEqual(t, ch.TokenCount, 100000)
		assert.False(t, ch.Oversized)
	}
	assert.Zero(t, res.Stats.OversizedChunks)
	assert.Zero(t, res.Stats.ForcedSplits)
}

// Fifty 100-token files, 2050-token budget, 500-token window: chunks after
// the first each open with exactly five carried-over files.
func TestChunkOverlapLaw(t *testing.T) {
	e := newTestEngine()
	files := make([]SourceFile, 50)
	for i := range files {
		files[i] = SourceFile{
			Path:     fmt.Sprintf("f%02d", i),
			Content:  strings.Repeat("x", 399) + "\n",
			Language: "go",
		}
	}

	cfg := Config{Strategy: StrategySemantic, MaxTokens: 2050, OverlapTokens: 500}
	res, err := e.Chunk(context.Background(), files, cfg)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 5)

	wantFiles := []int{16, 11, 11, 11, 1}
	for i, ch := range res.Chunks {
		assert.Len(t, ch.Files, wantFiles[i], "chunk %d", i)
		assert.LessOrEqual(t, ch.TokenCount, cfg.MaxTokens)
		assert.False(t, ch.Oversized)
		assert.Equal(t, "go", ch.PrimaryLanguage)
	}

	for i := 1; i < len(res.Chunks); i++ {
		ch, prev := res.Chunks[i], res.Chunks[i-1]
		assert.Equal(t, 500, ch.OverlapTokens, "chunk %d", i)
		require.Len(t, ch.Overlap, 5, "chunk %d", i)

		// The overlap is exactly the last five segments of the previous
		// chunk, whole.
		tail := prev.Segments[len(prev.Segments)-5:]
		assert.Equal(t, tail, ch.Overlap, "chunk %d", i)

		// Rendered content announces the carried context.
		assert.True(t, strings.HasPrefix(ch.Content, overlapBanner+"\n"))
	}
	assert.Empty(t, res.Chunks[0].Overlap)

	st := res.Stats
	assert.Equal(t, 50, st.FileCount)
	assert.Equal(t, 5, st.ChunkCount)
	require.Len(t, st.TokenDistribution, 5)
	total := 0
	for i, n := range st.TokenDistribution {
		assert.Equal(t, res.Chunks[i].TokenCount, n)
		total += n
	}
	assert.Equal(t, total, st.TotalTokens)
	assert.Equal(t, cfg.MaxTokens, st.MaxTokens)
	assert.Equal(t, cfg.OverlapTokens, st.OverlapTokens)
}

// Every byte of every input file appears in exactly one chunk segment, in
// order, even when a file has to be force-cut mid-line.
func TestChunkRoundTrip(t *testing.T) {
	e := newTestEngine()
	para := strings.Repeat("r", 398) + "\n\n"
	files := []SourceFile{
		{Path: "qqq", Content: strings.Repeat("q", 6000)}, // single line, forces hard cuts
		{Path: "rrr", Content: strings.Repeat(para, 4), Language: "markdown"},
	}

	res, err := e.Chunk(context.Background(), files, Config{
		Strategy:  StrategySemantic,
		MaxTokens: 1000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)

	covered := map[string]int{}
	for _, ch := range res.Chunks {
		for _, s := range ch.Segments {
			assert.Equal(t, covered[s.Path], s.Start, "segment out of order in %s", s.Path)
			assert.Greater(t, s.End, s.Start)
			covered[s.Path] = s.End
		}
	}
	for _, f := range files {
		assert.Equal(t, len(f.Content), covered[f.Path], "file %s not fully covered", f.Path)
	}

	assert.Equal(t, 1, res.Stats.ForcedSplits)
	assert.Equal(t, 1, res.Stats.OversizedChunks)
}

// Rendered output is chunkable input: re-running under the directory
// strategy at the same budget keeps every original byte.
func TestChunkRechunksOwnOutput(t *testing.T) {
	e := newTestEngine()
	files := []SourceFile{
		{Path: "a.go", Content: strings.Repeat("func a() {\n\treturn\n}\n\n", 8), Language: "go"},
		{Path: "b.md", Content: strings.Repeat(strings.Repeat("m", 58)+"\n\n", 3), Language: "markdown"},
		{Path: "c.py", Content: strings.Repeat("def c():\n    return 2\n\n", 8), Language: "python"},
	}

	first, err := e.Chunk(context.Background(), files, Config{
		Strategy:  StrategyFile,
		MaxTokens: 100,
	})
	require.NoError(t, err)
	require.Len(t, first.Chunks, 3)

	var all strings.Builder
	rendered := make([]SourceFile, 0, len(first.Chunks))
	for _, ch := range first.Chunks {
		all.WriteString(ch.Content)
		rendered = append(rendered, SourceFile{
			Path:    fmt.Sprintf("chunk_%03d.txt", ch.Index),
			Content: ch.Content,
		})
	}
	for _, f := range files {
		assert.Contains(t, all.String(), f.Content, "file %s not intact in rendered output", f.Path)
	}

	second, err := e.Chunk(context.Background(), rendered, Config{
		Strategy:  StrategyDirectory,
		MaxTokens: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, second.Chunks)

	covered := map[string]int{}
	for _, ch := range second.Chunks {
		for _, s := range ch.Segments {
			require.Equal(t, covered[s.Path], s.Start, "segment out of order in %s", s.Path)
			covered[s.Path] = s.End
		}
	}
	for _, r := range rendered {
		assert.Equal(t, len(r.Content), covered[r.Path], "chunk doc %s not fully covered", r.Path)
	}
}

// A directory that fits its budget travels whole; one that does not falls
// back to declaration-level units. Hybrid lets the fallback tail share a
// chunk with the next directory, the directory strategy keeps it exclusive.
func TestChunkHybridVersusDirectory(t *testing.T) {
	e := newTestEngine()
	para := strings.Repeat("b", 398) + "\n\n"
	files := []SourceFile{
		{Path: "a/x", Content: strings.Repeat("x", 200), Language: "go"},
		{Path: "a/y", Content: strings.Repeat("y", 200), Language: "go"},
		{Path: "b/z", Content: strings.Repeat(para, 8)}, // 800 tokens, over budget
		{Path: "c/w", Content: strings.Repeat("w", 200), Language: "go"},
	}
	cfg := Config{MaxTokens: 350, OverlapTokens: 0}

	t.Run("hybrid", func(t *testing.T) {
		cfg := cfg
		cfg.Strategy = StrategyHybrid

		res, err := e.Chunk(context.Background(), files, cfg)
		require.NoError(t, err)
		require.Len(t, res.Chunks, 4)

		assert.Equal(t, []string{"a/x", "a/y"}, res.Chunks[0].Files)
		assert.Equal(t, "go", res.Chunks[0].PrimaryLanguage)
		assert.Equal(t, []string{"b/z"}, res.Chunks[1].Files)
		assert.Equal(t, []string{"b/z"}, res.Chunks[2].Files)
		// The directory's tail chunk tops up with the next directory.
		assert.Equal(t, []string{"b/z", "c/w"}, res.Chunks[3].Files)
	})

	t.Run("directory", func(t *testing.T) {
		cfg := cfg
		cfg.Strategy = StrategyDirectory

		res, err := e.Chunk(context.Background(), files, cfg)
		require.NoError(t, err)
		require.Len(t, res.Chunks, 5)

		assert.Equal(t, []string{"a/x", "a/y"}, res.Chunks[0].Files)
		assert.Equal(t, []string{"b/z"}, res.Chunks[1].Files)
		assert.Equal(t, []string{"b/z"}, res.Chunks[2].Files)
		assert.Equal(t, []string{"b/z"}, res.Chunks[3].Files)
		assert.Equal(t, []string{"c/w"}, res.Chunks[4].Files)
	})

	for _, st := range []Strategy{StrategyHybrid, StrategyDirectory} {
		cfg := cfg
		cfg.Strategy = st
		res, err := e.Chunk(context.Background(), files, cfg)
		require.NoError(t, err)
		for _, ch := range res.Chunks {
			assert.LessOrEqual(t, ch.TokenCount, cfg.MaxTokens)
			assert.False(t, ch.Oversized)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	e := newTestEngine()
	para := strings.Repeat("d", 198) + "\n\n"
	files := []SourceFile{
		{Path: "pkg/one.go", Content: strings.Repeat("func f() {\n\treturn\n}\n\n", 30), Language: "go"},
		{Path: "pkg/two.go", Content: strings.Repeat("func g() {\n\treturn\n}\n\n", 10), Language: "go"},
		{Path: "docs/read.md", Content: strings.Repeat(para, 12), Language: "markdown"},
		{Path: "main.py", Content: strings.Repeat("def f():\n    return 1\n\n", 18), Language: "python"},
	}

	run := func(workers int) *Result {
		res, err := e.Chunk(context.Background(), files, Config{
			Strategy:      StrategyHybrid,
			MaxTokens:     300,
			OverlapTokens: 50,
			Workers:       workers,
		})
		require.NoError(t, err)
		return res
	}

	sequential := run(1)
	for range 3 {
		require.Equal(t, sequential, run(4))
	}
}

func TestChunkCancelled(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []SourceFile{{Path: "a.go", Content: "package a\n"}}
	res, err := e.Chunk(ctx, files, Config{MaxTokens: 100})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Empty(t, res.Chunks)
}

func TestChunkMarksSecrets(t *testing.T) {
	e := newTestEngine()
	files := []SourceFile{
		{Path: "cfg", Content: `password = "hunter2hunter2"` + "\n"},
	}

	res, err := e.Chunk(context.Background(), files, Config{
		MaxTokens:   1000,
		ScanSecrets: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.True(t, res.Chunks[0].HasSecrets)

	res, err = e.Chunk(context.Background(), files, Config{MaxTokens: 1000})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.False(t, res.Chunks[0].HasSecrets)
}
