// Package redis stores the state document under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"calstats/internal/config"
)

const defaultKey = "calstats:state"

// Blob keeps the state document in one string key.
type Blob struct {
	client *redis.Client
	key    string
}

// Open connects to the configured server and verifies it with a PING.
func Open(cfg config.RedisConfig) (*Blob, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewFromClient(client, cfg.Key), nil
}

// NewFromClient wraps an existing client. An empty key uses the default.
func NewFromClient(client *redis.Client, key string) *Blob {
	if key == "" {
		key = defaultKey
	}
	return &Blob{client: client, key: key}
}

// Get returns the stored document, or nil when the key does not exist.
func (b *Blob) Get(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return data, nil
}

// Put replaces the stored document. The key never expires.
func (b *Blob) Put(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

// Close closes the client.
func (b *Blob) Close() error {
	return b.client.Close()
}
