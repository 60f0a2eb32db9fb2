// Package ingest resolves a source location, a local path or a remote git
// repository, into the in-memory file set the chunking engine consumes.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"repochunk/internal/chunk"
)

var (
	// ErrSourceUnavailable marks a source that cannot be read: missing
	// path, failed clone, unreadable single file.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrIngestTimeout marks ingestion aborted by its deadline.
	ErrIngestTimeout = errors.New("ingestion timed out")
)

// DefaultMaxFileSize is the per-file ceiling; anything larger is skipped.
const DefaultMaxFileSize = 10 << 20 // 10 MiB

// Binary detection reads at most this many leading bytes.
const sniffLen = 8000

// Options tune a single ingestion run.
type Options struct {
	// Include and Exclude are doublestar globs over slash-relative paths.
	Include []string
	Exclude []string

	// MaxFileSize caps individual files; <=0 means DefaultMaxFileSize.
	MaxFileSize int64

	// CloneTimeout bounds remote clones; <=0 means DefaultCloneTimeout.
	CloneTimeout time.Duration
}

// Ingester loads source trees. Safe for concurrent use.
type Ingester struct {
	opts   Options
	logger *slog.Logger
}

// New creates an ingester with the given options.
func New(opts Options, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Ingester{opts: opts, logger: logger}
}

// Load resolves source and returns its files. A remote URL is shallow-cloned
// into a temporary directory that is removed before Load returns; anything
// else is treated as a local path.
func (ing *Ingester) Load(ctx context.Context, source string) ([]chunk.SourceFile, error) {
	if IsRemoteURL(source) {
		dir, cleanup, err := ing.clone(ctx, source)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		return ing.LoadDirectory(ctx, dir)
	}
	return ing.LoadDirectory(ctx, source)
}

// LoadDirectory walks root and reads every matching text file. Unreadable,
// oversized, and binary files are skipped with a log line, never an error.
// A root that is itself a regular file loads as a single-file set.
func (ing *Ingester) LoadDirectory(ctx context.Context, root string) ([]chunk.SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return ing.loadFile(root)
	}

	walker := NewWalker(ing.opts.Include, ing.opts.Exclude)
	var files []chunk.SourceFile

	err = walker.Walk(root, func(path, relPath string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		fi, err := os.Stat(path)
		if err != nil {
			ing.logger.Warn("skipping unreadable file", "path", relPath, "error", err)
			return nil
		}
		if fi.Size() > ing.opts.MaxFileSize {
			ing.logger.Warn("skipping oversized file", "path", relPath, "size", fi.Size())
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			ing.logger.Warn("skipping unreadable file", "path", relPath, "error", err)
			return nil
		}
		if isBinary(data) {
			ing.logger.Debug("skipping binary file", "path", relPath)
			return nil
		}

		files = append(files, chunk.SourceFile{
			Path:     relPath,
			Content:  string(data),
			Size:     int64(len(data)),
			Language: DetectLanguage(relPath),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrIngestTimeout, err)
		}
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	ing.logger.Info("source loaded", "root", root, "files", len(files))
	return files, nil
}

func (ing *Ingester) loadFile(path string) ([]chunk.SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if int64(len(data)) > ing.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds the file size limit", ErrSourceUnavailable, path)
	}
	if isBinary(data) {
		return nil, fmt.Errorf("%w: %s is a binary file", ErrSourceUnavailable, path)
	}

	name := filepath.Base(path)
	return []chunk.SourceFile{{
		Path:     name,
		Content:  string(data),
		Size:     int64(len(data)),
		Language: DetectLanguage(name),
	}}, nil
}

// isBinary sniffs for a NUL byte in the leading bytes, the same heuristic
// git uses to classify blobs.
func isBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}
