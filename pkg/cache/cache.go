package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Store is a shared byte-level tier behind the in-process cache.
// Implementations return ErrCacheMiss for absent keys.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Recorder receives one event per lookup. Cache names are bounded (one per
// entity type) so they are safe as metric labels.
type Recorder interface {
	RecordCacheLookup(cache, outcome string)
}

// Outcome reports how a lookup was satisfied.
type Outcome int

const (
	// Fetched means this lookup started the fetch that produced the value.
	Fetched Outcome = iota
	// Hit means a live entry was returned without fetching.
	Hit
	// Shared means the value came from a fetch another caller started.
	Shared
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Shared:
		return "shared"
	default:
		return "fetched"
	}
}

// Fetcher produces the value for a missing key. The context it receives is
// detached from the caller that triggered it.
type Fetcher[V any] func(ctx context.Context) (V, error)
