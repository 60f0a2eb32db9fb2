package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
)

// DefaultCloneTimeout bounds a shallow clone of a remote repository.
const DefaultCloneTimeout = 5 * time.Minute

// IsRemoteURL reports whether source names a remote git repository rather
// than a local path.
func IsRemoteURL(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "ssh://") ||
		strings.HasPrefix(source, "git://")
}

// clone fetches a depth-1 copy of url into a temporary directory. The
// returned cleanup removes it.
func (ing *Ingester) clone(ctx context.Context, url string) (string, func(), error) {
	timeout := ing.opts.CloneTimeout
	if timeout <= 0 {
		timeout = DefaultCloneTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "repochunk-clone-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating clone directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	ing.logger.Info("cloning repository", "url", url)
	_, err = git.PlainCloneContext(cctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		cleanup()
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return "", nil, fmt.Errorf("%w: cloning %s: %w", ErrIngestTimeout, url, err)
		}
		return "", nil, fmt.Errorf("%w: cloning %s: %w", ErrSourceUnavailable, url, err)
	}
	return dir, cleanup, nil
}
