package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/service/ratelimit"
	xhttp "FolioFeed/pkg/http"
	applogger "FolioFeed/pkg/logger"
)

// Doer performs one HTTP exchange. *xhttp.Client satisfies it.
type Doer interface {
	SendAndParse(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error
}

// Recorder receives one event per attempt.
type Recorder interface {
	RecordProviderCall(provider, outcome string)
	RecordLatency(op string, seconds float64)
}

type Config struct {
	MaxAttempts  int           // per call, counting the first
	BaseBackoff  time.Duration // throttled: BaseBackoff * 2^attempt
	MaxBackoff   time.Duration
	NetworkDelay time.Duration // transient: fixed
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		BaseBackoff:  time.Second,
		MaxBackoff:   30 * time.Second,
		NetworkDelay: 2 * time.Second,
	}
}

type Option func(*Client)

// WithSleep replaces the context-aware sleep used between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// Client is the single path to every external provider. It spaces calls per
// provider, classifies failures into the domain taxonomy, retries throttled
// and transient failures and counts every attempt.
type Client struct {
	http    Doer
	limiter *ratelimit.Limiter
	usage   *Usage
	metrics Recorder
	logger  *applogger.Logger
	cfg     Config
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewClient(doer Doer, limiter *ratelimit.Limiter, usage *Usage, m Recorder, l *applogger.Logger, cfg Config, opts ...Option) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	c := &Client{
		http:    doer,
		limiter: limiter,
		usage:   usage,
		metrics: m,
		logger:  l,
		cfg:     cfg,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Usage returns the tracker the client records into.
func (c *Client) Usage() *Usage {
	return c.usage
}

// Do runs req against provider and decodes the body into dest. The returned
// error is nil, a context error, or a *models.ProviderError.
func (c *Client) Do(ctx context.Context, provider string, req *xhttp.RequestOptions, dest interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, provider); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%s: wait for rate slot: %w", provider, err)
		}

		start := time.Now()
		err := classify(ctx, provider, c.http.SendAndParse(ctx, req, dest))
		c.metrics.RecordLatency("provider."+provider, time.Since(start).Seconds())

		c.usage.Record(provider, err)
		if ctx.Err() != nil && err != nil {
			c.metrics.RecordProviderCall(provider, "cancelled")
			return ctx.Err()
		}
		c.metrics.RecordProviderCall(provider, outcome(err))
		if err == nil {
			return nil
		}
		lastErr = err

		if !models.IsRetryable(err) || attempt == c.cfg.MaxAttempts-1 {
			break
		}

		delay := c.backoff(attempt, err)
		c.logger.Debug("provider call failed, retrying",
			applogger.String("provider", provider),
			applogger.Int("attempt", attempt+1),
			applogger.Duration("delay_ms", delay),
			applogger.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) backoff(attempt int, err error) time.Duration {
	if !errors.Is(err, models.ErrThrottled) {
		return c.cfg.NetworkDelay
	}
	d := c.cfg.BaseBackoff << attempt
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.RetryAfter > d {
		d = se.RetryAfter
	}
	if c.cfg.MaxBackoff > 0 && d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	return d
}

func classify(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		pe := &models.ProviderError{Provider: provider, Status: se.Code, Err: se}
		switch se.Code {
		case http.StatusTooManyRequests:
			pe.Kind = models.ErrThrottled
		case http.StatusUnauthorized, http.StatusForbidden:
			pe.Kind = models.ErrMisconfigured
		case http.StatusNotFound:
			pe.Kind = models.ErrNotFound
		}
		return pe
	}
	if errors.Is(err, xhttp.ErrDecode) {
		return &models.ProviderError{Provider: provider, Err: err}
	}
	return &models.ProviderError{Provider: provider, Kind: models.ErrTransient, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrThrottled):
		return "throttled"
	case errors.Is(err, models.ErrTransient):
		return "transient"
	case errors.Is(err, models.ErrMisconfigured):
		return "misconfigured"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
