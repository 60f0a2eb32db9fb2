package token

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding used when no model family is configured.
const DefaultEncoding = "o200k_base"

// Tiktoken counts tokens with a real BPE encoding.
type Tiktoken struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewTiktoken resolves modelOrEncoding first as an encoding name, then as a
// model name, falling back to DefaultEncoding when neither is known.
func NewTiktoken(modelOrEncoding string) (*Tiktoken, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}
	name := modelOrEncoding
	enc, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		enc, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			name = DefaultEncoding
			enc, err = tiktoken.GetEncoding(DefaultEncoding)
			if err != nil {
				return nil, fmt.Errorf("load encoding %q: %w", DefaultEncoding, err)
			}
		}
	}
	return &Tiktoken{name: name, enc: enc}, nil
}

// Count implements Counter.
func (t *Tiktoken) Count(_ context.Context, text string) (int, error) {
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Encoding returns the encoding or model name this counter resolved to.
func (t *Tiktoken) Encoding() string { return t.name }
