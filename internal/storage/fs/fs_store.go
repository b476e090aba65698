// Package fs implements the artifact store on a local directory tree, one
// subdirectory per artifact category.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fattura/internal/domain"
	"fattura/internal/port"
)

type fsStore struct {
	root string
}

// NewStore creates a filesystem-backed ArtifactStorage rooted at dir.
func NewStore(dir string) (port.ArtifactStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact root: %w", err)
	}
	return &fsStore{root: dir}, nil
}

func (s *fsStore) path(kind domain.ArtifactKind, filename string) string {
	return filepath.Join(s.root, string(kind), filepath.Base(filename))
}

func (s *fsStore) Path(kind domain.ArtifactKind, filename string) string {
	return s.path(kind, filename)
}

func (s *fsStore) Write(_ context.Context, kind domain.ArtifactKind, filename string, data []byte) (string, error) {
	p := s.path(kind, filename)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", kind, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s artifact: %w", kind, err)
	}
	return p, nil
}

func (s *fsStore) Read(_ context.Context, kind domain.ArtifactKind, filename string) ([]byte, error) {
	data, err := os.ReadFile(s.path(kind, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s artifact: %w", kind, err)
	}
	return data, nil
}

func (s *fsStore) Exists(_ context.Context, kind domain.ArtifactKind, filename string) (bool, error) {
	_, err := os.Stat(s.path(kind, filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s artifact: %w", kind, err)
}

func (s *fsStore) Delete(_ context.Context, kind domain.ArtifactKind, filename string) error {
	err := os.Remove(s.path(kind, filename))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s artifact: %w", kind, err)
	}
	return nil
}
