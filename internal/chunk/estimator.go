package chunk

import (
	"context"
	"unicode/utf8"

	"repochunk/internal/token"
)

// SizeEstimator answers fit questions against a token budget using the
// counting oracle. Stateless.
type SizeEstimator struct {
	counter token.Counter
}

// NewSizeEstimator wraps a token counter.
func NewSizeEstimator(counter token.Counter) *SizeEstimator {
	return &SizeEstimator{counter: counter}
}

// Count returns the estimated token count of text.
func (e *SizeEstimator) Count(ctx context.Context, text string) (int, error) {
	return e.counter.Count(ctx, text)
}

// Fits reports whether text stays within budget tokens.
func (e *SizeEstimator) Fits(ctx context.Context, text string, budget int) (bool, error) {
	n, err := e.counter.Count(ctx, text)
	if err != nil {
		return false, err
	}
	return n <= budget, nil
}

// CutAt returns the byte length of the longest prefix of text whose token
// count stays within budget, by binary search over the monotonic oracle.
// The cut never lands inside a UTF-8 rune. A non-empty text always yields a
// cut of at least one rune, so a caller looping over CutAt makes progress.
func (e *SizeEstimator) CutAt(ctx context.Context, text string, budget int) (int, error) {
	n, err := e.counter.Count(ctx, text)
	if err != nil {
		return 0, err
	}
	if n <= budget {
		return len(text), nil
	}
	// Invariant: text[:lo] fits, text[:hi] does not.
	lo, hi := 0, len(text)
	for lo+1 < hi {
		mid := alignRune(text, (lo+hi)/2)
		if mid <= lo || mid >= hi {
			break
		}
		n, err := e.counter.Count(ctx, text[:mid])
		if err != nil {
			return 0, err
		}
		if n <= budget {
			lo = mid
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size, nil
	}
	return lo, nil
}

// alignRune moves offset back to the nearest rune start.
func alignRune(text string, offset int) int {
	for offset > 0 && offset < len(text) && !utf8.RuneStart(text[offset]) {
		offset--
	}
	return offset
}
