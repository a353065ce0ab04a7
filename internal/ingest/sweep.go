package ingest

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
)

// PathLister reports every file path the database references.
type PathLister interface {
	ListFilePaths() ([]string, error)
}

// FileLister reports every file present in the upload root.
type FileLister interface {
	List() ([]string, error)
}

// Sweep removes files in the upload root that no document row references.
// Such orphans can only appear from a crash between a failed ingest and its
// discard, or between a delete commit and its file removal; the database is
// the source of truth, so the files are safe to reclaim. Removals run
// concurrently and individually best-effort. Returns the number removed.
func Sweep(ctx context.Context, files FileLister, store PathLister) (int, error) {
	onDisk, err := files.List()
	if err != nil {
		return 0, err
	}

	referenced, err := store.ListFilePaths()
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		known[p] = struct{}{}
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)

	removed := make(chan string, len(onDisk))
	for _, path := range onDisk {
		if _, ok := known[path]; ok {
			continue
		}
		g.Go(func() error {
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove orphaned file", "path", path, "error", err)
				return nil
			}
			removed <- path
			return nil
		})
	}

	g.Wait()
	close(removed)

	count := 0
	for path := range removed {
		slog.Info("removed orphaned file", "path", path)
		count++
	}
	return count, nil
}
