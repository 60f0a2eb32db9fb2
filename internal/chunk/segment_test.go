package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochunk/internal/token"
)

func newTestSegmenter() *UnitSegmenter {
	return NewUnitSegmenter(NewSizeEstimator(token.Heuristic{}))
}

func TestWholeFile(t *testing.T) {
	seg := newTestSegmenter()
	file := &SourceFile{Path: "a.go", Content: "0123456789", Language: "go"}

	u, err := seg.WholeFile(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, Unit{
		Path:   "a.go",
		Start:  0,
		End:    10,
		Kind:   UnitWholeFile,
		Tokens: 2,
	}, u)
}

func TestSegmentFileWithinCap(t *testing.T) {
	seg := newTestSegmenter()
	file := &SourceFile{Path: "a.go", Content: "func a() {}\n", Language: "go"}

	units, err := seg.Segment(context.Background(), file, 10)
	require.NoError(t, err)
	require.Len(t, units, 1)

	assert.Equal(t, Unit{
		Path:   "a.go",
		Start:  0,
		End:    12,
		Kind:   UnitDeclaration,
		Tokens: 3,
	}, units[0])
}

func TestSegmentCutsAtCheapestBoundary(t *testing.T) {
	seg := newTestSegmenter()
	// 43 bytes, 10 heuristic tokens. The blank-line boundary before the
	// second function (offset 22) is the cheapest cut in reach.
	src := "func a() {\n\tx := 1\n}\n\nfunc b() {\n\ty := 2\n}\n"
	file := &SourceFile{Path: "a.go", Content: src, Language: "go"}

	units, err := seg.Segment(context.Background(), file, 6)
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, 0, units[0].Start)
	assert.Equal(t, 22, units[0].End)
	assert.Equal(t, UnitDeclaration, units[0].Kind)
	assert.Equal(t, 5, units[0].Tokens)
	assert.False(t, units[0].Forced)

	assert.Equal(t, 22, units[1].Start)
	assert.Equal(t, 43, units[1].End)
	assert.Equal(t, UnitDeclaration, units[1].Kind)
	assert.Equal(t, 5, units[1].Tokens)
	assert.False(t, units[1].Forced)
}

func TestSegmentForcedCutWithoutBoundaries(t *testing.T) {
	seg := newTestSegmenter()
	// One long line: no boundary candidates at all.
	file := &SourceFile{Path: "blob.txt", Content: strings.Repeat("x", 40)}

	units, err := seg.Segment(context.Background(), file, 5)
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, 0, units[0].Start)
	assert.Equal(t, 23, units[0].End)
	assert.True(t, units[0].Forced)
	assert.Equal(t, 5, units[0].Tokens)

	assert.Equal(t, 23, units[1].Start)
	assert.Equal(t, 40, units[1].End)
	assert.False(t, units[1].Forced)
	assert.Equal(t, UnitBlock, units[1].Kind)
}

func TestSegmentTieBreakPrefersLatestBoundary(t *testing.T) {
	seg := newTestSegmenter()
	// Paragraph boundaries every 40 bytes, all cost-free. The cut must land
	// on the furthest one the cap allows, keeping units large.
	para := strings.Repeat("p", 38) + "\n\n"
	file := &SourceFile{Path: "notes.md", Content: strings.Repeat(para, 5), Language: "markdown"}

	units, err := seg.Segment(context.Background(), file, 25)
	require.NoError(t, err)
	require.Len(t, units, 3)

	// 25 tokens reach 100 bytes; boundaries sit at 40, 80, 120, 160. Both
	// 40 and 80 are free cuts, so 80 wins.
	assert.Equal(t, 80, units[0].End)
	assert.Equal(t, 160, units[1].End)
	assert.Equal(t, 200, units[2].End)
}

func TestSegmentEmptyFile(t *testing.T) {
	seg := newTestSegmenter()

	units, err := seg.Segment(context.Background(), &SourceFile{Path: "empty.go"}, 10)
	require.NoError(t, err)
	assert.Nil(t, units)
}

func TestSegmentUnitsPartitionFile(t *testing.T) {
	seg := newTestSegmenter()
	src := strings.Repeat("func f() {\n\treturn\n}\n\n", 30)
	file := &SourceFile{Path: "gen.go", Content: src, Language: "go"}

	units, err := seg.Segment(context.Background(), file, 20)
	require.NoError(t, err)
	require.NotEmpty(t, units)

	// Units tile the file exactly: no gaps, no Tokens over the cap.
	pos := 0
	for _, u := range units {
		assert.Equal(t, "gen.go", u.Path)
		assert.Equal(t, pos, u.Start)
		assert.Greater(t, u.End, u.Start)
		assert.LessOrEqual(t, u.Tokens, 20)
		pos = u.End
	}
	assert.Equal(t, len(src), pos)
}

func TestSegmentDeterministic(t *testing.T) {
	seg := newTestSegmenter()
	src := strings.Repeat("def f():\n    return 1\n\n", 20)
	file := &SourceFile{Path: "gen.py", Content: src, Language: "python"}

	first, err := seg.Segment(context.Background(), file, 15)
	require.NoError(t, err)
	second, err := seg.Segment(context.Background(), file, 15)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSegmentCancelled(t *testing.T) {
	seg := newTestSegmenter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seg.Segment(ctx, &SourceFile{Path: "a.go", Content: "x := 1\n"}, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
