package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Backend on the local filesystem.
type FSStore struct {
	root string
}

// NewFSStore creates root if needed.
func NewFSStore(root string) (*FSStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("archive: invalid root path: %w", err)
	}

	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create root dir: %w", err)
	}

	return &FSStore{root: absRoot}, nil
}

func (s *FSStore) Provider() string { return "filesystem" }

// ErrInvalidKey is returned for keys that do not name a file under the root.
var ErrInvalidKey = errors.New("archive: invalid key")

func (s *FSStore) path(key string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return full, nil
}

func (s *FSStore) Put(_ context.Context, key string, blob []byte, _ BlobMetadata) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir: %w", err)
	}

	// Atomic write: temp file in the same directory, then rename.
	tmpFile, err := os.CreateTemp(dir, "archive-*.tmp")
	if err != nil {
		return fmt.Errorf("archive: create temp: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)

	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("archive: chmod: %w", err)
	}
	if _, err := tmpFile.Write(blob); err != nil {
		tmpFile.Close()
		return fmt.Errorf("archive: write temp: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("archive: close temp: %w", err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("archive: rename: %w", err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive: key not found: %s", key)
		}
		return nil, fmt.Errorf("archive: open file: %w", err)
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("archive: delete file: %w", err)
	}
	return nil
}
