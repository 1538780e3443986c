package store

import (
	"context"
	"fmt"

	"calstats/internal/config"
	appLog "calstats/internal/log"
	"calstats/internal/store/bolt"
	"calstats/internal/store/redis"
)

// Store loads and saves the persisted State.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	Close() error
}

// Blob is a single-value byte store. Get returns nil, nil when nothing has
// been written yet.
type Blob interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Close() error
}

// BlobStore implements Store on top of a Blob.
type BlobStore struct {
	blob Blob
	name string
}

// New wraps blob; name is used in logs and errors.
func New(name string, blob Blob) *BlobStore {
	return &BlobStore{blob: blob, name: name}
}

// Open selects a backend by cfg.Type.
func Open(cfg config.StorageConfig) (*BlobStore, error) {
	switch cfg.Type {
	case "", "file":
		return New("file", NewFileBlob(cfg.Path)), nil
	case "bolt":
		b, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return New("bolt", b), nil
	case "redis":
		b, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return New("redis", b), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Type)
	}
}

// Load reads and decodes the state. Read errors are returned; an unreadable
// document decodes to Empty().
func (s *BlobStore) Load(ctx context.Context) (State, error) {
	data, err := s.blob.Get(ctx)
	if err != nil {
		return Empty(), fmt.Errorf("%s store: load: %w", s.name, err)
	}
	st := Decode(data)
	appLog.Debug("state loaded", "backend", s.name, "sources", len(st.Sources), "mappings", len(st.TitleMappings), "removed", len(st.RemovedEventIDs))
	return st, nil
}

// Save encodes and writes the state.
func (s *BlobStore) Save(ctx context.Context, st State) error {
	data, err := Encode(st)
	if err != nil {
		return err
	}
	if err := s.blob.Put(ctx, data); err != nil {
		return fmt.Errorf("%s store: save: %w", s.name, err)
	}
	appLog.Info("state saved", "backend", s.name, "sources", len(st.Sources), "bytes", len(data))
	return nil
}

// Close releases the backend.
func (s *BlobStore) Close() error {
	return s.blob.Close()
}
