package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

func (s *mapStore) SetBytes(_ context.Context, key string, data []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func TestGetOrFetchCoalescesConcurrentCallers(t *testing.T) {
	c := NewTTL[string, int]("test", WithSweepInterval(0))
	defer c.Close()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), "AAPL", time.Minute, fetch)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Fatalf("caller %d: expected 42, got %d", i, results[i])
		}
	}
}

func TestConcurrentCallersShareFailure(t *testing.T) {
	c := NewTTL[string, int]("test", WithSweepInterval(0))
	defer c.Close()

	boom := errors.New("boom")
	release := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 0, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Fatalf("caller %d: expected boom, got %v", i, err)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("failure must not be stored, len=%d", c.Len())
	}
}

func TestFailedFetchIsRetriedOnNextCall(t *testing.T) {
	c := NewTTL[string, string]("test", WithSweepInterval(0))
	defer c.Close()

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	}

	if _, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch); err == nil {
		t.Fatal("expected first call to fail")
	}
	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 2 {
		t.Fatalf("expected ok after 2 calls, got %q after %d", v, calls)
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewTTL[string, int]("test", WithSweepInterval(0), WithClock(clock.Now))
	defer c.Close()

	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, _ := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	if v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}

	clock.Advance(59 * time.Second)
	v, outcome, _ := c.Lookup(context.Background(), "k", time.Minute, fetch)
	if v != 1 || outcome != Hit {
		t.Fatalf("expected cached 1 (hit), got %d (%s)", v, outcome)
	}

	clock.Advance(time.Second)
	v, outcome, _ = c.Lookup(context.Background(), "k", time.Minute, fetch)
	if v != 2 || outcome != Fetched {
		t.Fatalf("read at expiry must refetch, got %d (%s)", v, outcome)
	}
}

func TestCallerCancelDoesNotAbortSharedFetch(t *testing.T) {
	c := NewTTL[string, string]("test", WithSweepInterval(0))
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "value", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		firstErr <- err
	}()

	<-started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for the cancelled caller, got %v", err)
	}

	second := make(chan string, 1)
	go func() {
		v, err := c.GetOrFetch(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
			t.Error("second caller must not start a new fetch")
			return "", nil
		})
		if err != nil {
			t.Errorf("second caller: %v", err)
		}
		second <- v
	}()

	close(release)
	if v := <-second; v != "value" {
		t.Fatalf("expected value from the surviving fetch, got %q", v)
	}
}

func TestSweepEvictsEntriesOlderThanTwiceTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewTTL[string, int]("test", WithSweepInterval(0), WithClock(clock.Now))
	defer c.Close()

	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)

	clock.Advance(90 * time.Second)
	if n := c.Sweep(); n != 0 {
		t.Fatalf("expired but younger than 2x ttl must survive the sweep, removed %d", n)
	}
	if _, ok := c.Get("short"); ok {
		t.Fatal("expired entry must read as a miss")
	}

	clock.Advance(31 * time.Second)
	if n := c.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", c.Len())
	}
}

func TestMaxSizeEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	c := NewTTL[string, int]("test", WithSweepInterval(0), WithClock(clock.Now), WithMaxSize(2))
	defer c.Close()

	c.Set("a", 1, time.Hour)
	clock.Advance(time.Second)
	c.Set("b", 2, time.Hour)
	clock.Advance(time.Second)
	c.Set("c", 3, time.Hour)

	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("newest entry missing")
	}
}

func TestStoreTierServesSecondInstance(t *testing.T) {
	store := &mapStore{data: map[string][]byte{}}

	type candidate struct {
		Symbol string `json:"symbol"`
	}

	first := NewTTL[string, *candidate]("ticker", WithSweepInterval(0), WithStore(store, "ticker"))
	defer first.Close()
	_, err := first.GetOrFetch(context.Background(), "apple", time.Hour, func(ctx context.Context) (*candidate, error) {
		return &candidate{Symbol: "AAPL"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := NewTTL[string, *candidate]("ticker", WithSweepInterval(0), WithStore(store, "ticker"))
	defer second.Close()
	v, err := second.GetOrFetch(context.Background(), "apple", time.Hour, func(ctx context.Context) (*candidate, error) {
		t.Error("store hit expected, fetch called")
		return nil, errors.New("unexpected fetch")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || v.Symbol != "AAPL" {
		t.Fatalf("expected AAPL from store, got %+v", v)
	}
}

func TestNilResultIsCached(t *testing.T) {
	c := NewTTL[string, *int]("test", WithSweepInterval(0))
	defer c.Close()

	calls := 0
	fetch := func(ctx context.Context) (*int, error) {
		calls++
		return nil, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrFetch(context.Background(), "nothing", time.Minute, fetch)
		if err != nil || v != nil {
			t.Fatalf("expected nil result, got %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("nil result should be cached, fetched %d times", calls)
	}
}

func TestNormalizeQuery(t *testing.T) {
	if NormalizeSymbol(" brk.b ") != "BRK.B" {
		t.Fatalf("unexpected normalized symbol %q", NormalizeSymbol(" brk.b "))
	}
	if NormalizeQuery("  Apple   Inc ") != "apple inc" {
		t.Fatalf("unexpected normalized query %q", NormalizeQuery("  Apple   Inc "))
	}
}
