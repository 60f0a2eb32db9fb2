package chunk

import "errors"

// Sentinel errors for the chunking core. Oversized units and empty inputs
// are states on the Result, not errors. Collaborator failures (ingestion,
// token oracle) pass through unchanged.
var (
	// ErrInvalidConfig rejects a bad budget or strategy before any work
	// begins.
	ErrInvalidConfig = errors.New("invalid chunking configuration")

	// ErrCancelled accompanies a partial Result when the context is
	// cancelled mid-run.
	ErrCancelled = errors.New("chunking cancelled")
)
