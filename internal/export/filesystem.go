package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilesystemStore writes exports under a local directory. Used by tests
// and single-node deployments without object storage.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a filesystem-backed export store.
func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{root: root}
}

// Put writes the content to a file named after the key.
func (s *FilesystemStore) Put(ctx context.Context, key string, contentType string, body io.Reader) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}

// Ensure FilesystemStore implements Store.
var _ Store = (*FilesystemStore)(nil)
