package token

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short", "abc", 0},
		{"exact", "12345678", 2},
		{"code", "func main() {\n\tprintln(\"hi\")\n}\n", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Heuristic{}.Count(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestHeuristicMonotonic(t *testing.T) {
	text := "package main\n\nfunc main() { println(42) }\n"
	prev := 0
	for i := 0; i <= len(text); i++ {
		n, err := Heuristic{}.Count(context.Background(), text[:i])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, prev, "count must not decrease at prefix %d", i)
		prev = n
	}
}

// countingCounter records how often the inner oracle is consulted.
type countingCounter struct {
	calls int
	err   error
}

func (c *countingCounter) Count(_ context.Context, text string) (int, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return len(text) / 4, nil
}

func TestCachedCountMemoizes(t *testing.T) {
	inner := &countingCounter{}
	cached, err := NewCached(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	n1, err := cached.Count(ctx, "some chunk of text")
	require.NoError(t, err)
	n2, err := cached.Count(ctx, "some chunk of text")
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Equal(t, 1, inner.calls)

	_, err = cached.Count(ctx, "different text body")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedCountPropagatesErrors(t *testing.T) {
	oracleErr := errors.New("oracle down")
	inner := &countingCounter{err: oracleErr}
	cached, err := NewCached(inner, 0)
	require.NoError(t, err)

	_, err = cached.Count(context.Background(), "text")
	assert.ErrorIs(t, err, oracleErr)

	// Failures must not be cached.
	inner.err = nil
	n, err := cached.Count(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheKeyDeterministic(t *testing.T) {
	assert.Equal(t, cacheKey("abc"), cacheKey("abc"))
	assert.NotEqual(t, cacheKey("abc"), cacheKey("abd"))
	assert.Len(t, cacheKey("abc"), 16)
}
