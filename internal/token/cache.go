package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 4096

// Cached memoizes an inner Counter, keyed by content hash. Segmentation
// counts overlapping windows of the same text many times per run.
type Cached struct {
	inner Counter
	lru   *lru.Cache[string, int]
}

// NewCached wraps inner with an LRU of the given size (size <= 0 uses a
// default).
func NewCached(inner Counter, size int) (*Cached, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, int](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, lru: c}, nil
}

// Count implements Counter.
func (c *Cached) Count(ctx context.Context, text string) (int, error) {
	key := cacheKey(text)
	if n, ok := c.lru.Get(key); ok {
		return n, nil
	}
	n, err := c.inner.Count(ctx, text)
	if err != nil {
		return 0, err
	}
	c.lru.Add(key, n)
	return n, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}
