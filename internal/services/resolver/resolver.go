package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/service"
	"FolioFeed/pkg/cache"
	applogger "FolioFeed/pkg/logger"
)

// tickerPattern is the strict form tried before searching: 1-5 uppercase
// letters with an optional one-letter class suffix (BRK.B).
var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)

// Searcher runs a free-text symbol search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchCandidate, error)
}

// Resolver maps free text to a symbol. Results, including "no match", are
// cached by normalized query.
type Resolver struct {
	searcher  Searcher
	validator service.MarketValidator
	cache     *cache.TTL[string, *models.TickerCandidate]
	ttl       time.Duration
	logger    *applogger.Logger
}

var _ service.TickerResolver = (*Resolver)(nil)

func New(searcher Searcher, validator service.MarketValidator, c *cache.TTL[string, *models.TickerCandidate], ttl time.Duration, l *applogger.Logger) *Resolver {
	return &Resolver{searcher: searcher, validator: validator, cache: c, ttl: ttl, logger: l}
}

// IsTickerLike reports whether q has the strict ticker form.
func IsTickerLike(q string) bool {
	return tickerPattern.MatchString(strings.TrimSpace(q))
}

// Resolve returns the best candidate for query, or nil when nothing clears
// MinConfidence. A search failure is returned as an error and not cached.
func (r *Resolver) Resolve(ctx context.Context, query string) (*models.TickerCandidate, error) {
	q := strings.TrimSpace(query)
	key := cache.NormalizeQuery(q)
	if key == "" {
		return nil, nil
	}

	cand, outcome, err := r.cache.Lookup(ctx, key, r.ttl, func(ctx context.Context) (*models.TickerCandidate, error) {
		return r.resolve(ctx, q, key)
	})
	if err != nil {
		return nil, err
	}
	if cand != nil && outcome == cache.Hit {
		c := *cand
		c.Source = models.SourceCache
		return &c, nil
	}
	return cand, nil
}

func (r *Resolver) resolve(ctx context.Context, q, normalized string) (*models.TickerCandidate, error) {
	if tickerPattern.MatchString(q) {
		if v := r.validator.Validate(ctx, q); v.IsValid {
			return &models.TickerCandidate{
				Symbol:       q,
				CompanyName:  v.CompanyName,
				Confidence:   ExactSymbolConfidence,
				SearchQuery:  q,
				IsExactMatch: true,
				Source:       models.SourceDirectTicker,
			}, nil
		}
	}

	results, err := r.searcher.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}

	var (
		best      models.SearchCandidate
		bestScore float64
		bestGap   int
	)
	for _, res := range results {
		s := scoreCandidate(normalized, res.Symbol, res.Description)
		gap := descriptionGap(normalized, strings.ToLower(strings.TrimSpace(res.Description)))
		// remaining ties keep the provider's order
		if s > bestScore || (s == bestScore && s > 0 && gap < bestGap) {
			best, bestScore, bestGap = res, s, gap
		}
	}

	if bestScore < MinConfidence {
		r.logger.Debug("no confident symbol match",
			applogger.String("query", q),
			applogger.Int("results", len(results)),
			applogger.Float64("best", bestScore),
		)
		return nil, nil
	}

	return &models.TickerCandidate{
		Symbol:       best.Symbol,
		CompanyName:  best.Description,
		Confidence:   bestScore,
		SearchQuery:  q,
		IsExactMatch: strings.EqualFold(best.Symbol, normalized),
		Source:       models.SourceFuzzySearch,
	}, nil
}
