package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"FolioFeed/internal/domain/models"
	applogger "FolioFeed/pkg/logger"
	"FolioFeed/pkg/metrics"
)

func newChain() *Chain {
	return NewChain(metrics.Nop{}, applogger.Nop())
}

func TestFirstSuccessWins(t *testing.T) {
	secondCalled := false
	providers := []Provider[string]{
		{Name: "finnhub", Fetch: func(ctx context.Context) (string, error) { return "primary", nil }},
		{Name: "yahoo", Fetch: func(ctx context.Context) (string, error) {
			secondCalled = true
			return "secondary", nil
		}},
	}

	v, err := Resolve(context.Background(), newChain(), "get quote", providers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "primary" || secondCalled {
		t.Fatalf("expected primary without touching fallback, got %q (fallback called: %v)", v, secondCalled)
	}
}

func TestFallsThroughToNextProvider(t *testing.T) {
	throttled := &models.ProviderError{Provider: "finnhub", Status: 429, Kind: models.ErrThrottled}
	providers := []Provider[float64]{
		{Name: "finnhub", Fetch: func(ctx context.Context) (float64, error) { return 0, throttled }},
		{Name: "yahoo", Fetch: func(ctx context.Context) (float64, error) { return 187.5, nil }},
	}

	v, err := Resolve(context.Background(), newChain(), "get quote", providers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 187.5 {
		t.Fatalf("expected fallback value, got %v", v)
	}
}

func TestZeroValueFromProviderIsSuccess(t *testing.T) {
	providers := []Provider[float64]{
		{Name: "finnhub", Fetch: func(ctx context.Context) (float64, error) { return 0, nil }},
		{Name: "yahoo", Fetch: func(ctx context.Context) (float64, error) {
			t.Fatal("fallback must not run after a nil error")
			return 0, nil
		}},
	}
	if _, err := Resolve(context.Background(), newChain(), "get quote", providers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAllFailedAggregatesEveryProvider(t *testing.T) {
	primary := &models.ProviderError{Provider: "finnhub", Status: 429, Kind: models.ErrThrottled}
	secondary := &models.ProviderError{Provider: "yahoo", Kind: models.ErrTransient, Err: errors.New("connection reset")}
	providers := []Provider[int]{
		{Name: "finnhub", Fetch: func(ctx context.Context) (int, error) { return 0, primary }},
		{Name: "yahoo", Fetch: func(ctx context.Context) (int, error) { return 0, secondary }},
	}

	_, err := Resolve(context.Background(), newChain(), "get quote", providers)
	fe, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if len(fe.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(fe.Failures))
	}
	if fe.Headline() != primary.Error() {
		t.Fatalf("headline should be the primary error, got %q", fe.Headline())
	}
	msg := err.Error()
	if !strings.Contains(msg, "finnhub") || !strings.Contains(msg, "yahoo") {
		t.Fatalf("message must name every provider: %s", msg)
	}
	if !errors.Is(err, models.ErrThrottled) || !errors.Is(err, models.ErrTransient) {
		t.Fatal("both provider errors must be reachable with errors.Is")
	}
}

func TestCancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	providers := []Provider[int]{
		{Name: "finnhub", Fetch: func(ctx context.Context) (int, error) {
			cancel()
			return 0, ctx.Err()
		}},
		{Name: "yahoo", Fetch: func(ctx context.Context) (int, error) {
			t.Fatal("chain must stop once the caller is gone")
			return 0, nil
		}},
	}
	if _, err := Resolve(ctx, newChain(), "get quote", providers); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
