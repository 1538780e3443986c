package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"calstats/internal/config"
)

func setupTestBlob(t *testing.T) (*Blob, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	b, err := Open(config.RedisConfig{Addr: mr.Addr(), Key: "test:state"})
	if err != nil {
		t.Fatalf("Failed to open Redis blob: %v", err)
	}
	return b, mr
}

func TestBlob_GetMissing(t *testing.T) {
	b, _ := setupTestBlob(t)
	defer func() { _ = b.Close() }()

	got, err := b.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %q", got)
	}
}

func TestBlob_PutGet(t *testing.T) {
	b, mr := setupTestBlob(t)
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	if err := b.Put(ctx, []byte(`{"version":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := mr.Get("test:state")
	if err != nil {
		t.Fatalf("key not written: %v", err)
	}
	if raw != `{"version":1}` {
		t.Errorf("raw value: %q", raw)
	}
	if mr.TTL("test:state") != 0 {
		t.Errorf("state key should not expire, ttl=%v", mr.TTL("test:state"))
	}

	got, err := b.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"version":1}` {
		t.Errorf("got %q", got)
	}
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Open(config.RedisConfig{Addr: addr}); err == nil {
		t.Fatal("expected connection error")
	}
}
