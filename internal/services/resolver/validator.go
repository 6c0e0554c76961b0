package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/pkg/cache"
	applogger "FolioFeed/pkg/logger"
)

// ProfileSource looks up company reference data.
type ProfileSource interface {
	Profile(ctx context.Context, symbol string) (models.CompanyProfile, error)
}

// QuoteSource looks up a current quote.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// Validator checks symbols against live market data. Results are cached per
// symbol for a short ttl.
type Validator struct {
	profiles ProfileSource
	quotes   QuoteSource
	cache    *cache.TTL[string, models.MarketValidation]
	ttl      time.Duration
	logger   *applogger.Logger
}

func NewValidator(profiles ProfileSource, quotes QuoteSource, c *cache.TTL[string, models.MarketValidation], ttl time.Duration, l *applogger.Logger) *Validator {
	return &Validator{profiles: profiles, quotes: quotes, cache: c, ttl: ttl, logger: l}
}

// Validate never returns an error; failures are reported in the result with
// IsValid false.
func (v *Validator) Validate(ctx context.Context, symbol string) models.MarketValidation {
	sym := cache.NormalizeSymbol(symbol)
	if sym == "" {
		return models.MarketValidation{Symbol: symbol, Error: models.ErrInvalidSymbol.Error()}
	}

	res, err := v.cache.GetOrFetch(ctx, sym, v.ttl, func(ctx context.Context) (models.MarketValidation, error) {
		return v.check(ctx, sym)
	})
	if err != nil {
		v.logger.Warn("market validation failed",
			applogger.String("symbol", sym),
			applogger.Error(err),
		)
		return models.MarketValidation{Symbol: sym, Error: err.Error()}
	}
	return res
}

// check fetches profile and quote concurrently. It returns an error, which
// keeps the outcome out of the cache, only when neither lookup produced data
// and at least one failed for a reason other than "not found".
func (v *Validator) check(ctx context.Context, sym string) (models.MarketValidation, error) {
	var (
		wg      sync.WaitGroup
		profile models.CompanyProfile
		quote   models.Quote
		perr    error
		qerr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		profile, perr = v.profiles.Profile(ctx, sym)
	}()
	go func() {
		defer wg.Done()
		quote, qerr = v.quotes.Quote(ctx, sym)
	}()
	wg.Wait()

	hasProfile := perr == nil && profile.Name != ""
	hasQuote := qerr == nil && quote.Price > 0

	if !hasProfile && !hasQuote && (!terminal(perr) || !terminal(qerr)) {
		return models.MarketValidation{}, fmt.Errorf("validate %s: %w", sym, errors.Join(perr, qerr))
	}

	res := models.MarketValidation{
		Symbol:     sym,
		Confidence: ValidationConfidence(hasProfile, hasQuote, profile),
	}
	res.IsValid = res.Confidence > 0
	if hasProfile {
		res.CompanyName = profile.Name
		res.Exchange = profile.Exchange
		res.MarketCap = profile.MarketCap
	}
	if !res.IsValid {
		res.Error = models.ErrNotFound.Error()
	}
	return res, nil
}

func terminal(err error) bool {
	return err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidSymbol)
}
