package models

import (
	"errors"
	"fmt"
)

var (
	// ErrThrottled means the provider rejected the call for rate reasons (HTTP 429).
	ErrThrottled = errors.New("throttled")
	// ErrTransient is a network-level failure worth retrying.
	ErrTransient = errors.New("transient failure")
	// ErrNotFound means the provider has no data for the request.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSymbol means the input cannot be a symbol.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrMisconfigured means credentials are missing or rejected. Never retried.
	ErrMisconfigured = errors.New("provider misconfigured")
)

// ProviderError is a classified provider failure. Kind is one of the
// sentinels above or nil for an unclassified non-2xx response.
type ProviderError struct {
	Provider string
	Status   int
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Provider
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Kind != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	if e.Err != nil && e.Err != e.Kind {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewProviderError is a shorthand for a ProviderError without a status.
func NewProviderError(provider string, kind error, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// IsRetryable reports whether err is worth another attempt against the same
// provider.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrTransient)
}
