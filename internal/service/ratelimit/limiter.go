package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one rate.Limiter per key. It serves two shapes:
// Wait enforces a minimum spacing between successive calls (outbound provider
// calls) and Allow is a non-blocking token bucket (inbound API clients).
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*rate.Limiter
	intervals map[string]time.Duration
	spacing   time.Duration

	capacity     int
	refillPerSec float64
}

// New creates a limiter whose keys default to defaultSpacing between calls.
func New(defaultSpacing time.Duration) *Limiter {
	return &Limiter{
		m:         make(map[string]*rate.Limiter),
		intervals: make(map[string]time.Duration),
		spacing:   defaultSpacing,
	}
}

// NewBucket creates a limiter for Allow with the given burst capacity and
// steady refill rate.
func NewBucket(capacity int, refillPerSec float64) *Limiter {
	l := New(0)
	l.capacity = capacity
	l.refillPerSec = refillPerSec
	return l
}

// SetInterval sets the minimum spacing for key. Zero removes the limit.
func (l *Limiter) SetInterval(key string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intervals[key] = d
	delete(l.m, key)
}

// Interval returns the spacing in effect for key.
func (l *Limiter) Interval(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.intervals[key]; ok {
		return d
	}
	return l.spacing
}

// Wait blocks until a call for key may start. The first call is immediate;
// each later call starts at least the key's interval after the previous one.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.spacer(key).Wait(ctx)
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

func (l *Limiter) spacer(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.m[key]
	if !ok {
		d, set := l.intervals[key]
		if !set {
			d = l.spacing
		}
		limit := rate.Inf
		if d > 0 {
			limit = rate.Every(d)
		}
		lim = rate.NewLimiter(limit, 1)
		l.m[key] = lim
	}
	return lim
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.m[key]
	if !ok {
		capacity := l.capacity
		if capacity < 1 {
			capacity = 1
		}
		lim = rate.NewLimiter(rate.Limit(l.refillPerSec), capacity)
		l.m[key] = lim
	}
	return lim
}
