package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// The shared store is best effort: a decode or transport failure falls
// through to the fetcher and is only counted.

func (c *TTL[K, V]) storeKey(key K) string {
	prefix := c.cfg.StorePrefix
	if prefix == "" {
		prefix = c.name
	}
	return GenerateKey(prefix, c.flightKey(key))
}

func (c *TTL[K, V]) loadStore(ctx context.Context, key K) (V, bool) {
	var zero V
	if c.cfg.Store == nil {
		return zero, false
	}

	data, err := c.cfg.Store.GetBytes(ctx, c.storeKey(key))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.record("store_error")
		}
		return zero, false
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		c.record("store_error")
		return zero, false
	}
	c.record("store_hit")
	return v, true
}

func (c *TTL[K, V]) saveStore(ctx context.Context, key K, v V, ttl time.Duration) {
	if c.cfg.Store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.record("store_error")
		return
	}
	if err := c.cfg.Store.SetBytes(ctx, c.storeKey(key), data, ttl); err != nil {
		c.record("store_error")
	}
}
