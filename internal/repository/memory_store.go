package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
)

// MemoryArticleStore keeps articles in process. It backs tests and
// single-instance deployments that can afford to lose history on restart.
type MemoryArticleStore struct {
	mu        sync.RWMutex
	articles  []models.NewsArticle
	ids       map[string]struct{}
	urls      map[string]struct{}
	headlines map[string]struct{}
}

var _ repository.ArticleStore = (*MemoryArticleStore)(nil)

func NewMemoryArticleStore() *MemoryArticleStore {
	s := &MemoryArticleStore{}
	s.reindex()
	return s
}

func (s *MemoryArticleStore) Init(ctx context.Context) error { return nil }

func (s *MemoryArticleStore) FindDuplicate(ctx context.Context, externalID, url, headline string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ids[externalID]; ok && externalID != "" {
		return repository.MatchExternalID, true, nil
	}
	if _, ok := s.urls[url]; ok && url != "" {
		return repository.MatchURL, true, nil
	}
	if _, ok := s.headlines[headline]; ok && headline != "" {
		return repository.MatchHeadline, true, nil
	}
	return "", false, nil
}

func (s *MemoryArticleStore) Append(ctx context.Context, articles []models.NewsArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range articles {
		s.articles = append(s.articles, a)
		s.index(a)
	}
	return nil
}

func (s *MemoryArticleStore) ListBySymbols(ctx context.Context, symbols []string, since time.Time, limit int) ([]models.NewsArticle, error) {
	want := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		want[sym] = struct{}{}
	}

	s.mu.RLock()
	var out []models.NewsArticle
	for _, a := range s.articles {
		if a.PublishedAt.Before(since) {
			continue
		}
		for _, m := range a.RelatedSymbols {
			if _, ok := want[m.Symbol]; ok {
				out = append(out, a)
				break
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryArticleStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.articles[:0]
	for _, a := range s.articles {
		if !a.PublishedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := int64(len(s.articles) - len(kept))
	s.articles = kept
	s.reindex()
	return removed, nil
}

func (s *MemoryArticleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

func (s *MemoryArticleStore) Health(ctx context.Context) error { return nil }

func (s *MemoryArticleStore) Close() error { return nil }

func (s *MemoryArticleStore) reindex() {
	s.ids = make(map[string]struct{}, len(s.articles))
	s.urls = make(map[string]struct{}, len(s.articles))
	s.headlines = make(map[string]struct{}, len(s.articles))
	for _, a := range s.articles {
		s.index(a)
	}
}

func (s *MemoryArticleStore) index(a models.NewsArticle) {
	s.ids[a.ExternalID] = struct{}{}
	if a.URL != "" {
		s.urls[a.URL] = struct{}{}
	}
	s.headlines[a.Headline] = struct{}{}
}
