package repository

import (
	"context"

	"FolioFeed/internal/domain/models"
)

// QuoteProvider returns a current quote for one symbol.
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// NewsProvider returns raw articles for the market or a single company.
type NewsProvider interface {
	Name() string
	MarketNews(ctx context.Context, window Window) ([]models.RawArticle, error)
	CompanyNews(ctx context.Context, symbol string, window Window) ([]models.RawArticle, error)
}

// SymbolSearcher runs a free-text symbol lookup.
type SymbolSearcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]models.SearchCandidate, error)
}

// ProfileProvider returns company reference data. A zero-Name profile means
// the provider knows nothing about the symbol.
type ProfileProvider interface {
	Name() string
	Profile(ctx context.Context, symbol string) (models.CompanyProfile, error)
}

// IntentExtractor turns free text into holding statements.
type IntentExtractor interface {
	ExtractIntents(ctx context.Context, text string) ([]models.Intent, error)
}

// ArticlePublisher fans newly stored articles out to downstream consumers.
type ArticlePublisher interface {
	PublishArticles(ctx context.Context, articles []models.NewsArticle) error
	Close() error
}

type Metrics interface {
	RecordProviderCall(provider, outcome string)
	RecordFallback(capability, provider, outcome string)
	RecordCacheLookup(cache, outcome string)
	RecordArticles(stage string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
