package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	applogger "FolioFeed/pkg/logger"
)

// Provider is one source for a capability.
type Provider[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Failure is one provider's reason for failing.
type Failure struct {
	Provider string
	Err      error
}

// Error is returned when every provider failed. Its message lists each
// provider; Headline is the primary provider's message.
type Error struct {
	Capability string
	Failures   []Failure
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return fmt.Sprintf("%s: all providers failed: %s", e.Capability, strings.Join(parts, "; "))
}

// Headline is the primary provider's error message.
func (e *Error) Headline() string {
	if len(e.Failures) == 0 {
		return e.Capability + ": no providers configured"
	}
	return e.Failures[0].Err.Error()
}

// Primary is the primary provider's error.
func (e *Error) Primary() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[0].Err
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Recorder receives one event per provider attempt.
type Recorder interface {
	RecordFallback(capability, provider, outcome string)
}

// Chain tries providers in order and returns the first success.
type Chain struct {
	metrics Recorder
	logger  *applogger.Logger
}

func NewChain(m Recorder, l *applogger.Logger) *Chain {
	return &Chain{metrics: m, logger: l}
}

// Resolve runs providers in order. A provider succeeds when it returns a nil
// error, whatever its data looks like. Resolve stops early only if ctx ends.
func Resolve[T any](ctx context.Context, c *Chain, capability string, providers []Provider[T]) (T, error) {
	var zero T
	failures := make([]Failure, 0, len(providers))

	for i, p := range providers {
		v, err := p.Fetch(ctx)
		if err == nil {
			c.metrics.RecordFallback(capability, p.Name, "ok")
			if i > 0 {
				c.logger.Info("fallback provider served request",
					applogger.String("capability", capability),
					applogger.String("provider", p.Name),
					applogger.Int("skipped", i),
				)
			}
			return v, nil
		}
		c.metrics.RecordFallback(capability, p.Name, "failed")
		failures = append(failures, Failure{Provider: p.Name, Err: err})

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if i < len(providers)-1 {
			c.logger.Warn("provider failed, trying next",
				applogger.String("capability", capability),
				applogger.String("provider", p.Name),
				applogger.Error(err),
			)
		}
	}

	return zero, &Error{Capability: capability, Failures: failures}
}

// AsError reports whether err is an aggregated fallback failure.
func AsError(err error) (*Error, bool) {
	var fe *Error
	ok := errors.As(err, &fe)
	return fe, ok
}
