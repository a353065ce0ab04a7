package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore persists validated upload payloads under a single flat root
// directory.
type FileStore struct {
	root   string
	logger *slog.Logger
}

// NewFileStore creates the upload root if needed and returns a store over it.
// The root is resolved once so every path the store hands out shares the same
// prefix regardless of symlinks or relative invocation.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving upload directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &FileStore{root: abs, logger: slog.Default()}, nil
}

// Root returns the upload root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Save sanitizes name, verifies containment in the root, and writes data.
// It returns the absolute path of the written file.
func (s *FileStore) Save(name string, data []byte) (string, error) {
	safe, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}

	path, err := ResolveWithin(s.root, safe)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		s.Discard(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.Discard(path)
		return "", fmt.Errorf("closing file: %w", err)
	}

	return path, nil
}

// Discard removes a previously written file. It is idempotent and
// best-effort: a missing file is fine, any other filesystem error is logged
// and swallowed. Paths outside the root are refused.
func (s *FileStore) Discard(path string) {
	if _, err := ResolveWithin(s.root, filepath.Base(path)); err != nil {
		s.logger.Error("refusing to discard path outside upload root", "path", path)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to discard file", "path", path, "error", err)
	}
}

// List returns the absolute paths of every regular file in the root.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading upload directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(s.root, e.Name()))
		}
	}
	return paths, nil
}
