// Package watch re-runs chunking when a watched source tree changes.
package watch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"time"

	git "github.com/go-git/go-git/v5"

	"repochunk/internal/ingest"
)

// RunFunc executes one full chunking pass over the watched source.
type RunFunc func(ctx context.Context) error

// Watcher polls a source tree and rechunks on changes.
type Watcher struct {
	source   string
	interval time.Duration
	walker   *ingest.Walker
	run      RunFunc
	logger   *slog.Logger
	lastSig  string
}

// NewWatcher creates a watcher for a local source tree.
func NewWatcher(source string, interval time.Duration, walker *ingest.Walker, run RunFunc, logger *slog.Logger) *Watcher {
	return &Watcher{
		source:   source,
		interval: interval,
		walker:   walker,
		run:      run,
		logger:   logger,
	}
}

// Run starts the watch loop. The first pass runs immediately, later passes
// run only when the source signature changes.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("starting watch", "source", w.source, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Initial pass
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	sig, err := w.signature()
	if err != nil {
		w.logger.Error("signature check failed", "source", w.source, "error", err)
		return
	}

	if sig == w.lastSig {
		w.logger.Debug("source unchanged", "source", w.source)
		return
	}

	w.logger.Info("source changed, rechunking",
		"source", w.source,
		"old_sig", truncateHash(w.lastSig),
		"new_sig", truncateHash(sig),
	)

	if err := w.run(ctx); err != nil {
		// Keep the old signature so the next tick retries.
		w.logger.Error("chunking failed", "source", w.source, "error", err)
		return
	}

	w.lastSig = sig
}

// signature identifies the current state of the source. Git repositories use
// the HEAD hash, everything else a walk over file metadata.
func (w *Watcher) signature() (string, error) {
	if repo, err := git.PlainOpen(w.source); err == nil {
		if ref, err := repo.Head(); err == nil {
			return ref.Hash().String(), nil
		}
	}
	return w.contentSignature()
}

func (w *Watcher) contentSignature() (string, error) {
	h := sha256.New()
	err := w.walker.Walk(w.source, func(path, relPath string) error {
		info, err := os.Stat(path)
		if err != nil {
			// File deleted mid-walk, the next poll settles it.
			return nil
		}
		fmt.Fprintf(h, "%s|%d|%d\n", relPath, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func truncateHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
