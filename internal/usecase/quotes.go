package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	"FolioFeed/internal/service/fallback"
	"FolioFeed/pkg/cache"
	applogger "FolioFeed/pkg/logger"
)

const (
	capabilityQuote = "quote"

	defaultBatchWidth = 5
)

// QuoteService serves current quotes through the cache and the provider
// fallback chain.
type QuoteService struct {
	chain     *fallback.Chain
	providers []repository.QuoteProvider
	cache     *cache.TTL[string, models.Quote]
	ttl       time.Duration
	width     int
	logger    *applogger.Logger
}

func NewQuoteService(chain *fallback.Chain, providers []repository.QuoteProvider, c *cache.TTL[string, models.Quote], ttl time.Duration, width int, l *applogger.Logger) *QuoteService {
	if width <= 0 {
		width = defaultBatchWidth
	}
	return &QuoteService{chain: chain, providers: providers, cache: c, ttl: ttl, width: width, logger: l}
}

// Quote returns one symbol's quote from the first provider that answers.
func (s *QuoteService) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	sym := cache.NormalizeSymbol(symbol)
	if sym == "" {
		return models.Quote{}, fmt.Errorf("quote %q: %w", symbol, models.ErrInvalidSymbol)
	}
	return s.cache.GetOrFetch(ctx, sym, s.ttl, func(ctx context.Context) (models.Quote, error) {
		providers := make([]fallback.Provider[models.Quote], len(s.providers))
		for i, p := range s.providers {
			providers[i] = fallback.Provider[models.Quote]{
				Name:  p.Name(),
				Fetch: func(ctx context.Context) (models.Quote, error) { return p.Quote(ctx, sym) },
			}
		}
		return fallback.Resolve(ctx, s.chain, capabilityQuote, providers)
	})
}

// GetQuotes fetches each distinct symbol at most width at a time. A failed
// symbol carries its error and does not affect the others.
func (s *QuoteService) GetQuotes(ctx context.Context, symbols []string) []models.QuoteResult {
	unique := uniqueSymbols(symbols)
	results := make([]models.QuoteResult, len(unique))

	var g errgroup.Group
	g.SetLimit(s.width)
	for i, sym := range unique {
		g.Go(func() error {
			q, err := s.Quote(ctx, sym)
			if err != nil {
				s.logger.Warn("quote failed",
					applogger.String("symbol", sym),
					applogger.Error(err),
				)
				results[i] = models.QuoteResult{Symbol: sym, Error: errorMessage(err)}
				return nil
			}
			results[i] = models.QuoteResult{Symbol: sym, Quote: &q}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// uniqueSymbols normalizes symbols and drops blanks and repeats, keeping the
// first occurrence order.
func uniqueSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = cache.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// errorMessage prefers the primary provider's message for aggregated
// failures.
func errorMessage(err error) string {
	if fe, ok := fallback.AsError(err); ok {
		return fe.Headline()
	}
	return err.Error()
}
