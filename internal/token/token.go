// Package token provides the token-count oracle used for chunk budgeting.
package token

import (
	"context"
	"log/slog"
)

// Counter maps text to an estimated model token count. Implementations must
// be monotonic: a longer text never counts fewer tokens than its prefix.
type Counter interface {
	Count(ctx context.Context, text string) (int, error)
}

// Heuristic approximates tokens as len(text)/4, the conventional byte ratio
// for code. It needs no tokenizer data and serves as the fallback when no
// encoding can be loaded.
type Heuristic struct{}

// Count implements Counter.
func (Heuristic) Count(_ context.Context, text string) (int, error) {
	return len(text) / 4, nil
}

// NewCounter returns the best available Counter for a model family: a cached
// tiktoken encoding when one can be loaded, otherwise the heuristic.
func NewCounter(model string, logger *slog.Logger) Counter {
	if logger == nil {
		logger = slog.Default()
	}
	tk, err := NewTiktoken(model)
	if err != nil {
		logger.Warn("tokenizer unavailable, using heuristic counts", "model", model, "error", err)
		return Heuristic{}
	}
	cached, err := NewCached(tk, 0)
	if err != nil {
		return tk
	}
	return cached
}
