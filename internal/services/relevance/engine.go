package relevance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	"FolioFeed/internal/domain/service"
	"FolioFeed/pkg/cache"
	applogger "FolioFeed/pkg/logger"
)

// Recorder counts articles at each ingest stage.
type Recorder interface {
	RecordArticles(stage string, n int)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine owns canonical articles. Ingest calls are serialized so the
// duplicate check and the append see a consistent store.
type Engine struct {
	store   repository.ArticleStore
	metrics Recorder
	logger  *applogger.Logger
	now     func() time.Time

	mu sync.Mutex
}

var _ service.RelevanceEngine = (*Engine)(nil)

func NewEngine(store repository.ArticleStore, m Recorder, l *applogger.Logger, opts ...Option) *Engine {
	e := &Engine{store: store, metrics: m, logger: l, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExternalID is the provider's own id when there is one, otherwise a hash of
// publish time and headline.
func ExternalID(raw models.RawArticle) string {
	if id := strings.TrimSpace(raw.ID); id != "" {
		if raw.Provider != "" {
			return raw.Provider + ":" + id
		}
		return id
	}
	return cache.HashKey(strconv.FormatInt(raw.PublishedAt.Unix(), 10) + "|" + strings.TrimSpace(raw.Headline))
}

// Classify builds the canonical form of raw for the tracked symbols. ok is
// false when no tracked symbol is mentioned.
func Classify(raw models.RawArticle, tracked []string, names map[string]string) (models.NewsArticle, bool) {
	headline := strings.TrimSpace(raw.Headline)
	summary := strings.TrimSpace(raw.Summary)
	t := newText(headline, summary)

	related := mentions(t, tracked, names)
	if len(related) == 0 {
		return models.NewsArticle{}, false
	}
	return models.NewsArticle{
		ExternalID:     ExternalID(raw),
		Headline:       headline,
		Summary:        summary,
		URL:            strings.TrimSpace(raw.URL),
		Source:         raw.Source,
		PublishedAt:    raw.PublishedAt.UTC(),
		Category:       classifyCategory(t),
		Impact:         classifyImpact(t),
		RelatedSymbols: related,
	}, true
}

// Ingest classifies raws against tracked, drops those that match nothing or
// duplicate an article already stored or earlier in the batch, and appends
// the rest. It returns the newly stored articles.
func (e *Engine) Ingest(ctx context.Context, raws []models.RawArticle, tracked []string, names map[string]string) ([]models.NewsArticle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tracked = normalizeTracked(tracked)
	e.metrics.RecordArticles("received", len(raws))
	if len(raws) == 0 || len(tracked) == 0 {
		return nil, nil
	}

	var (
		fresh      []models.NewsArticle
		unmatched  int
		duplicates int
		seen       = newBatchIndex(len(raws))
		ingestedAt = e.now().UTC()
	)
	for _, raw := range raws {
		if strings.TrimSpace(raw.Headline) == "" {
			unmatched++
			continue
		}
		article, ok := Classify(raw, tracked, names)
		if !ok {
			unmatched++
			continue
		}
		if seen.contains(article) {
			duplicates++
			continue
		}
		matchedBy, found, err := e.store.FindDuplicate(ctx, article.ExternalID, article.URL, article.Headline)
		if err != nil {
			return nil, fmt.Errorf("find duplicate: %w", err)
		}
		if found {
			e.logger.Debug("duplicate article",
				applogger.String("external_id", article.ExternalID),
				applogger.String("matched_by", matchedBy),
			)
			duplicates++
			continue
		}
		seen.add(article)
		article.IngestedAt = ingestedAt
		fresh = append(fresh, article)
	}

	e.metrics.RecordArticles("unmatched", unmatched)
	e.metrics.RecordArticles("duplicate", duplicates)
	if len(fresh) == 0 {
		return nil, nil
	}
	if err := e.store.Append(ctx, fresh); err != nil {
		return nil, fmt.Errorf("append articles: %w", err)
	}
	e.metrics.RecordArticles("stored", len(fresh))

	e.logger.Info("news ingested",
		applogger.Int("received", len(raws)),
		applogger.Int("stored", len(fresh)),
		applogger.Int("duplicates", duplicates),
		applogger.Int("unmatched", unmatched),
	)
	return fresh, nil
}

func normalizeTracked(symbols []string) []string {
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

// batchIndex applies the same three-way identity check within one batch.
type batchIndex struct {
	ids, urls, headlines map[string]struct{}
}

func newBatchIndex(n int) *batchIndex {
	return &batchIndex{
		ids:       make(map[string]struct{}, n),
		urls:      make(map[string]struct{}, n),
		headlines: make(map[string]struct{}, n),
	}
}

func (b *batchIndex) contains(a models.NewsArticle) bool {
	if _, ok := b.ids[a.ExternalID]; ok {
		return true
	}
	if _, ok := b.urls[a.URL]; ok && a.URL != "" {
		return true
	}
	_, ok := b.headlines[a.Headline]
	return ok
}

func (b *batchIndex) add(a models.NewsArticle) {
	b.ids[a.ExternalID] = struct{}{}
	if a.URL != "" {
		b.urls[a.URL] = struct{}{}
	}
	b.headlines[a.Headline] = struct{}{}
}
