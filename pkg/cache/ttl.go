package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
	ttl       time.Duration
}

// TTL is an in-process cache that coalesces concurrent fetches for the same
// key. At most one fetch per key is in flight; every caller waiting on it
// receives the same value or the same error. Failed fetches are not stored.
type TTL[K comparable, V any] struct {
	name    string
	cfg     Config
	mu      sync.RWMutex
	entries map[K]*entry[V]
	group   singleflight.Group

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewTTL creates a cache. name identifies it in metrics and in the shared store.
func NewTTL[K comparable, V any](name string, opts ...Option) *TTL[K, V] {
	cfg := Config{
		MaxSize:       10000,
		SweepInterval: time.Minute,
		Clock:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	c := &TTL[K, V]{
		name:    name,
		cfg:     cfg,
		entries: make(map[K]*entry[V]),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go c.sweepLoop(cfg.SweepInterval)
	} else {
		close(c.done)
	}
	return c
}

// Name returns the cache name.
func (c *TTL[K, V]) Name() string {
	return c.name
}

// GetOrFetch returns the live value for key, or runs fetch and stores its
// result for ttl.
func (c *TTL[K, V]) GetOrFetch(ctx context.Context, key K, ttl time.Duration, fetch Fetcher[V]) (V, error) {
	v, _, err := c.Lookup(ctx, key, ttl, fetch)
	return v, err
}

// Lookup is GetOrFetch that also reports how the value was obtained.
//
// If ctx ends while a fetch is in flight, Lookup returns ctx.Err() but the
// fetch keeps running for the other waiters and still populates the cache.
func (c *TTL[K, V]) Lookup(ctx context.Context, key K, ttl time.Duration, fetch Fetcher[V]) (V, Outcome, error) {
	if v, ok := c.Get(key); ok {
		c.record(Hit.String())
		return v, Hit, nil
	}

	ch := c.group.DoChan(c.flightKey(key), func() (interface{}, error) {
		// a flight that finished between our miss and DoChan already stored it
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		fctx := context.WithoutCancel(ctx)
		if c.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.cfg.FetchTimeout)
			defer cancel()
		}

		if v, ok := c.loadStore(fctx, key); ok {
			c.Set(key, v, ttl)
			return v, nil
		}

		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		c.saveStore(fctx, key, v, ttl)
		return v, nil
	})

	var zero V
	select {
	case res := <-ch:
		outcome := Fetched
		if res.Shared {
			outcome = Shared
		}
		c.record(outcome.String())
		if res.Err != nil {
			return zero, outcome, res.Err
		}
		v, _ := res.Val.(V)
		return v, outcome, nil
	case <-ctx.Done():
		c.record("abandoned")
		return zero, Fetched, ctx.Err()
	}
}

// Get returns a live entry. An entry read at or after its expiry is a miss.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	now := c.cfg.Clock()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !now.Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set replaces the entry for key.
func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration) {
	now := c.cfg.Clock()
	e := &entry[V]{value: value, createdAt: now, expiresAt: now.Add(ttl), ttl: ttl}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.cfg.MaxSize > 0 && len(c.entries) >= c.cfg.MaxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = e
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep evicts entries older than twice their ttl and returns how many it
// removed.
func (c *TTL[K, V]) Sweep() int {
	now := c.cfg.Clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) > 2*e.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep.
func (c *TTL[K, V]) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

func (c *TTL[K, V]) sweepLoop(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *TTL[K, V]) evictOldestLocked() {
	var (
		oldestKey K
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.createdAt.Before(oldest) {
			oldestKey, oldest, found = k, e.createdAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func (c *TTL[K, V]) flightKey(key K) string {
	switch k := any(key).(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprintf("%v", k)
	}
}

func (c *TTL[K, V]) record(outcome string) {
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.RecordCacheLookup(c.name, outcome)
	}
}
