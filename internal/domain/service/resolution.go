package service

import (
	"context"

	"FolioFeed/internal/domain/models"
)

// TickerResolver maps a free-text company reference to a symbol candidate.
// A nil candidate with a nil error means nothing matched confidently.
type TickerResolver interface {
	Resolve(ctx context.Context, query string) (*models.TickerCandidate, error)
}

// MarketValidator checks a symbol against live market data. Failures are
// reported inside the returned value.
type MarketValidator interface {
	Validate(ctx context.Context, symbol string) models.MarketValidation
}

// RelevanceEngine turns raw articles into stored canonical ones.
type RelevanceEngine interface {
	Ingest(ctx context.Context, raws []models.RawArticle, tracked []string, names map[string]string) ([]models.NewsArticle, error)
}

// NewsRanker scores stored articles for one caller's portfolio.
type NewsRanker interface {
	Rank(articles []models.NewsArticle, weights models.PortfolioWeights) []models.RankedNewsItem
}
