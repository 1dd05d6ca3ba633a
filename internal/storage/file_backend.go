package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend implements Backend over the local filesystem, one file
// per (folder, key) rooted under BaseFolder — the persistence layout
// spec.md §6 mandates: "accounts/<id>" and "exchange/<bucket>".
type FileBackend struct {
	BaseFolder string
}

// NewFileBackend ensures BaseFolder exists and returns a ready backend.
func NewFileBackend(baseFolder string) (*FileBackend, error) {
	if err := os.MkdirAll(baseFolder, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base folder: %w", err)
	}
	return &FileBackend{BaseFolder: baseFolder}, nil
}

func (f *FileBackend) path(folder, key string) (string, error) {
	dir := filepath.Join(f.BaseFolder, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create folder %q: %w", folder, err)
	}
	return filepath.Join(dir, key), nil
}

func (f *FileBackend) Put(_ context.Context, folder, key string, value []byte) error {
	path, err := f.path(folder, key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("storage: write %s/%s: %w", folder, key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: commit %s/%s: %w", folder, key, err)
	}
	return nil
}

func (f *FileBackend) Get(_ context.Context, folder, key string) ([]byte, bool, error) {
	path := filepath.Join(f.BaseFolder, folder, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: read %s/%s: %w", folder, key, err)
	}
	return data, true, nil
}
