package scoring

import (
	"math"
	"testing"
	"time"

	"FolioFeed/internal/domain/models"
)

var now = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func article(id string, age time.Duration, impact models.Impact, cat models.Category, symbols ...string) models.NewsArticle {
	a := models.NewsArticle{
		ExternalID:  id,
		Headline:    id,
		PublishedAt: now.Add(-age),
		Impact:      impact,
		Category:    cat,
	}
	for _, s := range symbols {
		a.RelatedSymbols = append(a.RelatedSymbols, models.SymbolMention{Symbol: s, RelevanceScore: 0.9, MentionType: models.MentionPrimary})
	}
	return a
}

func newScorer() *Scorer {
	return New(WithClock(func() time.Time { return now }))
}

func TestScoreHeldEarningsArticle(t *testing.T) {
	weights := models.PortfolioWeights{"AAPL": models.ShareWeight(100)}
	a := article("a", time.Hour, models.ImpactPositive, models.CategoryEarnings, "AAPL")

	got := newScorer().Score(a, weights)
	want := 23.0/24*10 + math.Log(101)*5 + 3 + 5
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
	if math.Abs(got-40.6) > 0.1 {
		t.Fatalf("expected about 40.6, got %v", got)
	}
}

func TestScoreComponents(t *testing.T) {
	s := newScorer()
	w := models.PortfolioWeights{"MSFT": 2}

	cases := []struct {
		name string
		a    models.NewsArticle
		want float64
	}{
		{"stale neutral general", article("a", 48*time.Hour, models.ImpactNeutral, models.CategoryGeneral, "TSLA"), 0},
		{"fresh only", article("b", 0, models.ImpactNeutral, models.CategoryMarket), 10},
		{"future dated capped", article("c", -2*time.Hour, models.ImpactNeutral, models.CategoryGeneral), 10},
		{"negative impact", article("d", 48*time.Hour, models.ImpactNegative, models.CategoryGeneral), 3},
		{"regulatory", article("e", 48*time.Hour, models.ImpactNeutral, models.CategoryRegulatory), 4},
		{"product", article("f", 48*time.Hour, models.ImpactNeutral, models.CategoryProduct), 2},
		{"held symbol", article("g", 48*time.Hour, models.ImpactNeutral, models.CategoryGeneral, "MSFT", "TSLA"), 10},
		{"half day", article("h", 12*time.Hour, models.ImpactNeutral, models.CategoryGeneral), 5},
	}
	for _, tc := range cases {
		if got := s.Score(tc.a, w); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRankOrdersByScoreThenRecency(t *testing.T) {
	w := models.PortfolioWeights{"AAPL": 1}
	articles := []models.NewsArticle{
		article("old-tie", 30*time.Hour, models.ImpactNeutral, models.CategoryGeneral, "AAPL"),
		article("top", time.Hour, models.ImpactPositive, models.CategoryEarnings, "AAPL"),
		article("new-tie", 25*time.Hour, models.ImpactNeutral, models.CategoryGeneral, "AAPL"),
		article("unheld", 48*time.Hour, models.ImpactNeutral, models.CategoryGeneral, "XOM"),
	}

	ranked := newScorer().Rank(articles, w)
	order := make([]string, len(ranked))
	for i, r := range ranked {
		order[i] = r.Article.ExternalID
	}
	want := []string{"top", "new-tie", "old-tie", "unheld"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
	if ranked[1].RelevanceScore != ranked[2].RelevanceScore {
		t.Fatalf("expected a score tie, got %v and %v", ranked[1].RelevanceScore, ranked[2].RelevanceScore)
	}
}

func TestRankDoesNotMutateArticles(t *testing.T) {
	articles := []models.NewsArticle{article("a", time.Hour, models.ImpactNeutral, models.CategoryGeneral, "AAPL")}
	_ = newScorer().Rank(articles, models.PortfolioWeights{"AAPL": 3})
	if articles[0].RelatedSymbols[0].RelevanceScore != 0.9 {
		t.Fatal("ranking must not rewrite canonical mention scores")
	}
}
