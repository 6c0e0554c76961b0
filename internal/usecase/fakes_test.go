package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/domain/repository"
	"FolioFeed/internal/service/fallback"
	applogger "FolioFeed/pkg/logger"
	"FolioFeed/pkg/metrics"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func testChain() *fallback.Chain {
	return fallback.NewChain(metrics.Nop{}, applogger.Nop())
}

type fakeQuotes struct {
	name   string
	prices map[string]float64
	errs   map[string]error
	delay  time.Duration

	calls    atomic.Int64
	inflight atomic.Int64
	peak     atomic.Int64
}

func (f *fakeQuotes) Name() string { return f.name }

func (f *fakeQuotes) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[symbol]; err != nil {
		return models.Quote{}, err
	}
	if err := f.errs["*"]; err != nil {
		return models.Quote{}, err
	}
	return models.Quote{Symbol: symbol, Price: f.prices[symbol], Provider: f.name}, nil
}

type fakeNews struct {
	name    string
	company map[string][]models.RawArticle
	market  []models.RawArticle
	failing map[string]bool
	err     error

	mu      sync.Mutex
	fetched []string
}

func (f *fakeNews) Name() string { return f.name }

func (f *fakeNews) MarketNews(ctx context.Context, w repository.Window) ([]models.RawArticle, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, "market")
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.market, nil
}

func (f *fakeNews) CompanyNews(ctx context.Context, symbol string, w repository.Window) ([]models.RawArticle, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, symbol)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.failing[symbol] {
		return nil, models.NewProviderError(f.name, models.ErrTransient, nil)
	}
	return f.company[symbol], nil
}

func (f *fakeNews) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.NewsArticle
}

func (p *recordingPublisher) PublishArticles(ctx context.Context, articles []models.NewsArticle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, articles...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeResolver struct {
	candidates map[string]*models.TickerCandidate
	errs       map[string]error
}

func (f *fakeResolver) Resolve(ctx context.Context, q string) (*models.TickerCandidate, error) {
	if err := f.errs[q]; err != nil {
		return nil, err
	}
	return f.candidates[q], nil
}

type fakeValidator map[string]models.MarketValidation

func (f fakeValidator) Validate(ctx context.Context, symbol string) models.MarketValidation {
	if v, ok := f[symbol]; ok {
		return v
	}
	return models.MarketValidation{Symbol: symbol, Error: models.ErrNotFound.Error()}
}

type fakeIntents struct {
	intents []models.Intent
	err     error
}

func (f *fakeIntents) ExtractIntents(ctx context.Context, text string) ([]models.Intent, error) {
	return f.intents, f.err
}
