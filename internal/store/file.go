package store

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"calstats/internal/config"
)

// FileBlob keeps the state in a single JSON file, replaced atomically on
// every write.
type FileBlob struct {
	path string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

func (f *FileBlob) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (f *FileBlob) Put(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return config.WriteFileAtomic(f.path, data, ".calstats-state-*.tmp")
}

func (f *FileBlob) Close() error { return nil }
