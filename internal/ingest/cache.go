package ingest

import (
	"context"
	"fmt"
	"sync"

	"calstats/internal/ics"
	appLog "calstats/internal/log"
	"calstats/internal/metrics"
	"calstats/internal/model"
	"calstats/internal/store"
)

// Cache holds the canonical event set rebuilt from a Store. Readers get the
// cached slice until Invalidate is called; the next Get reloads.
//
// Every write to the store goes through Commit, which serializes the
// load-merge-save cycle. Invalidate bumps a generation counter and a load
// that started under an older generation is never installed.
//
// Returned slices are shared between callers and must not be modified.
type Cache struct {
	store store.Store
	opts  ics.Options

	commitMu sync.Mutex

	mu     sync.RWMutex
	gen    uint64
	loaded bool
	state  store.State
	events []model.CalendarEvent
}

// Snapshot is one consistent read of the cache. Generation identifies the
// invalidation epoch the events were read under.
type Snapshot struct {
	Events     []model.CalendarEvent
	State      store.State
	Generation uint64
}

// NewCache creates an empty, unloaded cache over s.
func NewCache(s store.Store, opts ics.Options) *Cache {
	return &Cache{store: s, opts: opts}
}

// Load reads the state and rebuilds the event set unconditionally.
func (c *Cache) Load(ctx context.Context) error {
	_, err := c.load(ctx)
	return err
}

func (c *Cache) load(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	st, err := c.store.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Events: Reconstruct(st, c.opts), State: st, Generation: gen}

	c.mu.Lock()
	installed := c.gen == gen
	if installed {
		c.state = st
		c.events = snap.Events
		c.loaded = true
	}
	c.mu.Unlock()

	if !installed {
		appLog.Debug("event cache load superseded", "generation", gen)
		return snap, nil
	}
	metrics.CachedEvents.Set(float64(len(snap.Events)))
	appLog.Info("event cache loaded", "sources", len(st.Sources), "events", len(snap.Events))
	return snap, nil
}

// Invalidate drops the cached set so the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.loaded = false
	c.events = nil
	c.state = store.State{}
	c.mu.Unlock()
}

// Generation returns the current invalidation epoch.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Snapshot returns the cached events and state, loading them first if needed.
// A load superseded by a concurrent Invalidate is returned to this caller
// with its older Generation but is not installed.
func (c *Cache) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	if c.loaded {
		snap := Snapshot{Events: c.events, State: c.state, Generation: c.gen}
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()
	return c.load(ctx)
}

// Get returns the cached events, loading them first if needed.
func (c *Cache) Get(ctx context.Context) ([]model.CalendarEvent, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Events, nil
}

// State returns the persisted state behind the cached events.
func (c *Cache) State(ctx context.Context) (store.State, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return store.State{}, err
	}
	return snap.State, nil
}

// Commit persists new sources and decisions and invalidates the cache.
// Concurrent commits are applied one at a time.
func (c *Cache) Commit(ctx context.Context, sources []store.SourceRecord, remaps map[string]string, removed []string) (store.State, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	st, err := commit(ctx, c.store, sources, remaps, removed)
	if err != nil {
		return store.State{}, err
	}
	c.Invalidate()
	return st, nil
}

// commit merges sources and decisions into the stored state and saves it.
// Callers hold Cache.commitMu.
func commit(ctx context.Context, s store.Store, sources []store.SourceRecord, remaps map[string]string, removed []string) (store.State, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return store.State{}, fmt.Errorf("commit: %w", err)
	}
	next := current.Merge(sources, remaps, removed)
	if err := s.Save(ctx, next); err != nil {
		return store.State{}, fmt.Errorf("commit: %w", err)
	}

	if len(remaps) > 0 {
		metrics.DecisionsApplied.WithLabelValues("remap").Add(float64(len(remaps)))
	}
	if len(removed) > 0 {
		metrics.DecisionsApplied.WithLabelValues("removal").Add(float64(len(removed)))
	}
	appLog.Info("state committed", "new_sources", len(sources), "remaps", len(remaps), "removed", len(removed))
	return next, nil
}
