package repository

import (
	"context"
	"time"

	"FolioFeed/internal/domain/models"
)

// Duplicate match kinds, most specific first.
const (
	MatchExternalID = "external_id"
	MatchURL        = "url"
	MatchHeadline   = "headline"
)

// ArticleStore is the append-only canonical article store.
type ArticleStore interface {
	Init(ctx context.Context) error
	// FindDuplicate reports whether a stored article shares the external id,
	// the url, or the exact headline, checked in that order. Empty values
	// never match.
	FindDuplicate(ctx context.Context, externalID, url, headline string) (matchedBy string, found bool, err error)
	Append(ctx context.Context, articles []models.NewsArticle) error
	// ListBySymbols returns articles related to any of symbols published at or
	// after since, newest first.
	ListBySymbols(ctx context.Context, symbols []string, since time.Time, limit int) ([]models.NewsArticle, error)
	// Prune deletes articles published before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Health(ctx context.Context) error
	Close() error
}
