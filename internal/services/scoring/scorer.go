package scoring

import (
	"math"
	"sort"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/service"
	"FolioFeed/pkg/util"
)

const (
	recencyWeight  = 10.0
	recencyHorizon = 24.0 // hours
	holdingWeight  = 5.0
	impactBoost    = 3.0
)

var categoryBoost = map[models.Category]float64{
	models.CategoryEarnings:   5,
	models.CategoryRegulatory: 4,
	models.CategoryProduct:    2,
}

type Option func(*Scorer)

func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// Scorer ranks canonical articles for one caller. Scores depend on the
// caller's weights and the current time and are never stored.
type Scorer struct {
	now func() time.Time
}

var _ service.NewsRanker = (*Scorer)(nil)

func New(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score is recency×10 + Σ weight×5 over held related symbols + 3 for a
// non-neutral impact + the category boost.
func (s *Scorer) Score(a models.NewsArticle, weights models.PortfolioWeights) float64 {
	return score(a, weights, s.now())
}

func score(a models.NewsArticle, weights models.PortfolioWeights, now time.Time) float64 {
	age := util.HoursSince(now, a.PublishedAt)
	total := math.Max(0, recencyHorizon-age) / recencyHorizon * recencyWeight

	for _, m := range a.RelatedSymbols {
		if w, ok := weights[m.Symbol]; ok {
			total += w * holdingWeight
		}
	}
	if a.Impact == models.ImpactPositive || a.Impact == models.ImpactNegative {
		total += impactBoost
	}
	return total + categoryBoost[a.Category]
}

// Rank scores every article against one clock reading and sorts descending,
// newer first on ties.
func (s *Scorer) Rank(articles []models.NewsArticle, weights models.PortfolioWeights) []models.RankedNewsItem {
	now := s.now()
	out := make([]models.RankedNewsItem, len(articles))
	for i, a := range articles {
		out[i] = models.RankedNewsItem{Article: a, RelevanceScore: score(a, weights, now)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return out[i].Article.PublishedAt.After(out[j].Article.PublishedAt)
	})
	return out
}
