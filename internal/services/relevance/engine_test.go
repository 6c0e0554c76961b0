package relevance

import (
	"context"
	"testing"
	"time"

	"FolioFeed/internal/domain/models"
	store "FolioFeed/internal/repository"
	applogger "FolioFeed/pkg/logger"
)

type countingRecorder struct {
	stages map[string]int
}

func (r *countingRecorder) RecordArticles(stage string, n int) {
	if r.stages == nil {
		r.stages = map[string]int{}
	}
	r.stages[stage] += n
}

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func newEngine() (*Engine, *store.MemoryArticleStore, *countingRecorder) {
	s := store.NewMemoryArticleStore()
	rec := &countingRecorder{}
	e := NewEngine(s, rec, applogger.Nop(), WithClock(func() time.Time { return fixedNow }))
	return e, s, rec
}

func raw(id, headline, summary, url string) models.RawArticle {
	return models.RawArticle{
		ID:          id,
		Headline:    headline,
		Summary:     summary,
		URL:         url,
		Source:      "Reuters",
		PublishedAt: fixedNow.Add(-time.Hour),
		Provider:    "finnhub",
	}
}

func TestIngestIssuerNameInHeadline(t *testing.T) {
	e, _, _ := newEngine()
	got, err := e.Ingest(context.Background(), []models.RawArticle{
		raw("1", "Tesla unveils new Model Y", "", "https://example.com/tesla"),
	}, []string{"TSLA"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	a := got[0]
	m, ok := a.Mention("TSLA")
	if !ok {
		t.Fatalf("expected a TSLA mention, got %+v", a.RelatedSymbols)
	}
	if m.MentionType != models.MentionPrimary || m.RelevanceScore != 0.9 {
		t.Fatalf("expected primary 0.9, got %+v", m)
	}
	if a.Category != models.CategoryProduct {
		t.Fatalf("expected product category, got %s", a.Category)
	}
	if !a.IngestedAt.Equal(fixedNow) {
		t.Fatalf("expected ingest time from clock, got %v", a.IngestedAt)
	}
}

func TestIngestTickerGrades(t *testing.T) {
	cases := []struct {
		name     string
		headline string
		summary  string
		want     models.MentionType
		score    float64
	}{
		{"cashtag in headline", "Why $NVDA is moving today", "", models.MentionPrimary, 0.9},
		{"repeated in body", "Chip stocks rally", "NVDA led gains. Analysts expect NVDA to continue.", models.MentionSecondary, 0.7},
		{"single body mention", "Chip stocks rally", "Shares of nvda. rose.", models.MentionMentioned, 0.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _, _ := newEngine()
			got, err := e.Ingest(context.Background(), []models.RawArticle{raw("x", tc.headline, tc.summary, "")}, []string{"NVDA"}, nil)
			if err != nil || len(got) != 1 {
				t.Fatalf("expected one article, got %d, %v", len(got), err)
			}
			m, _ := got[0].Mention("NVDA")
			if m.MentionType != tc.want || m.RelevanceScore != tc.score {
				t.Fatalf("got %+v, want %s %.2f", m, tc.want, tc.score)
			}
		})
	}
}

func TestIngestAliasIsWeakerThanDirect(t *testing.T) {
	e, _, _ := newEngine()
	got, err := e.Ingest(context.Background(), []models.RawArticle{
		raw("1", "Google cloud demand climbs", "", "u1"),
		raw("2", "Alphabet and Google both named in filing", "", "u2"),
	}, []string{"GOOGL"}, nil)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected two articles, got %d, %v", len(got), err)
	}
	alias, _ := got[0].Mention("GOOGL")
	if alias.RelevanceScore != 0.85 || alias.MentionType != models.MentionPrimary {
		t.Fatalf("alias headline hit: got %+v", alias)
	}
	direct, _ := got[1].Mention("GOOGL")
	if direct.RelevanceScore != 0.9 {
		t.Fatalf("direct evidence must win over alias, got %+v", direct)
	}
	if len(got[1].RelatedSymbols) != 1 {
		t.Fatalf("a symbol appears once, got %+v", got[1].RelatedSymbols)
	}
}

func TestIngestProvidedCompanyName(t *testing.T) {
	e, _, _ := newEngine()
	got, err := e.Ingest(context.Background(), []models.RawArticle{
		raw("1", "Palantir wins defense contract", "", ""),
	}, []string{"PLTR"}, map[string]string{"PLTR": "Palantir Technologies Inc."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("full name should not match a shorter headline, got %+v", got)
	}

	got, err = e.Ingest(context.Background(), []models.RawArticle{
		raw("2", "Palantir Technologies wins defense contract", "", ""),
	}, []string{"PLTR"}, map[string]string{"PLTR": "Palantir Technologies Inc."})
	if err != nil || len(got) != 1 {
		t.Fatalf("expected a match on the issuer name, got %d, %v", len(got), err)
	}
}

func TestIngestDropsUnmatched(t *testing.T) {
	e, s, rec := newEngine()
	got, err := e.Ingest(context.Background(), []models.RawArticle{
		raw("1", "Oil prices steady ahead of OPEC meeting", "", "u1"),
		raw("2", "", "AAPL", "u2"),
	}, []string{"AAPL"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || s.Len() != 0 {
		t.Fatalf("nothing should be stored, got %d/%d", len(got), s.Len())
	}
	if rec.stages["unmatched"] != 2 {
		t.Fatalf("expected 2 unmatched, got %v", rec.stages)
	}
}

func TestIngestDeduplicates(t *testing.T) {
	e, s, _ := newEngine()
	ctx := context.Background()
	tracked := []string{"AAPL"}

	first, err := e.Ingest(ctx, []models.RawArticle{raw("100", "AAPL beats estimates", "", "https://x/a")}, tracked, nil)
	if err != nil || len(first) != 1 {
		t.Fatalf("expected first ingest to store, got %d, %v", len(first), err)
	}

	dupes := []models.RawArticle{
		raw("100", "Different headline about AAPL", "", "https://x/other"),
		raw("200", "Another AAPL story", "", "https://x/a"),
		raw("300", "AAPL beats estimates", "", "https://x/new"),
	}
	got, err := e.Ingest(ctx, dupes, tracked, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || s.Len() != 1 {
		t.Fatalf("id, url and headline duplicates must all be rejected, stored %d", s.Len())
	}

	batch := []models.RawArticle{
		raw("400", "AAPL opens new store", "", "https://x/b"),
		raw("401", "AAPL opens new store", "", "https://x/c"),
	}
	got, err = e.Ingest(ctx, batch, tracked, nil)
	if err != nil || len(got) != 1 {
		t.Fatalf("in-batch duplicate must collapse, got %d, %v", len(got), err)
	}
}

func TestExternalIDFallsBackToHash(t *testing.T) {
	a := raw("", "AAPL beats estimates", "", "")
	b := raw("", "AAPL beats estimates", "", "")
	if ExternalID(a) != ExternalID(b) || len(ExternalID(a)) != 64 {
		t.Fatalf("expected a stable sha256 id, got %q", ExternalID(a))
	}
	b.PublishedAt = b.PublishedAt.Add(time.Second)
	if ExternalID(a) == ExternalID(b) {
		t.Fatal("publish time must be part of the id")
	}
	if got := ExternalID(raw("42", "x", "", "")); got != "finnhub:42" {
		t.Fatalf("expected provider id, got %q", got)
	}
}

func TestClassifyImpactAndCategory(t *testing.T) {
	cases := []struct {
		headline string
		impact   models.Impact
		category models.Category
	}{
		{"AAPL beats quarterly earnings estimates", models.ImpactPositive, models.CategoryEarnings},
		{"AAPL shares plunge after antitrust lawsuit", models.ImpactNegative, models.CategoryRegulatory},
		{"AAPL launches product amid record demand", models.ImpactPositive, models.CategoryProduct},
		{"AAPL and the broader market wait on the Fed", models.ImpactNeutral, models.CategoryMarket},
		{"AAPL names new board member", models.ImpactNeutral, models.CategoryGeneral},
		{"AAPL gains then falls", models.ImpactNeutral, models.CategoryGeneral},
	}
	for _, tc := range cases {
		a, ok := Classify(raw("1", tc.headline, "", ""), []string{"AAPL"}, nil)
		if !ok {
			t.Fatalf("%q: expected a match", tc.headline)
		}
		if a.Impact != tc.impact || a.Category != tc.category {
			t.Errorf("%q: got %s/%s, want %s/%s", tc.headline, a.Impact, a.Category, tc.impact, tc.category)
		}
	}
}

func TestIssuerName(t *testing.T) {
	cases := map[string]string{
		"Apple Inc.":                 "apple",
		"Alphabet Inc. Class A":      "alphabet",
		"JPMorgan Chase & Co.":       "jpmorgan chase",
		"Palantir Technologies Inc.": "palantir technologies",
		"":                           "",
	}
	for in, want := range cases {
		if got := issuerName(in); got != want {
			t.Errorf("issuerName(%q) = %q, want %q", in, got, want)
		}
	}
}
