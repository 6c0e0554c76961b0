package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"FolioFeed/internal/domain/models"
	"FolioFeed/pkg/config"
	applogger "FolioFeed/pkg/logger"
)

type fakeJobs struct {
	holdings  []models.Holding
	retention time.Duration
	err       error
}

func (f *fakeJobs) RefreshHoldings(_ context.Context, h []models.Holding) (int, error) {
	f.holdings = h
	return len(h), f.err
}

func (f *fakeJobs) Prune(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 3, f.err
}

type fakeSweeper struct{ swept int }

func (f *fakeSweeper) Name() string { return "quotes" }
func (f *fakeSweeper) Sweep() int {
	f.swept++
	return 1
}

type fakeUsage struct{}

func (fakeUsage) All() []models.UsageWindow {
	return []models.UsageWindow{{Provider: "finnhub", Requests: 7, Errors: 1, Throttled: 2}}
}

type usageRow struct {
	provider                    string
	requests, errors, throttled int64
}

type fakeRecorder struct{ rows []usageRow }

func (f *fakeRecorder) RecordUsage(provider string, requests, errors, throttled int64) {
	f.rows = append(f.rows, usageRow{provider, requests, errors, throttled})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	return cfg
}

func TestWatchlistNormalizesSymbols(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Watchlist = []config.WatchedHolding{
		{Symbol: " aapl ", Shares: 10},
		{Symbol: ""},
		{Symbol: "tsla", Shares: 100, CompanyName: "Tesla"},
	}
	a := New(cfg, applogger.Nop(), Services{}, nil, nil, nil, nil)

	got := a.Watchlist()
	if len(got) != 2 || got[0].Symbol != "AAPL" || got[1].Symbol != "TSLA" || got[1].CompanyName != "Tesla" {
		t.Fatalf("watchlist = %+v", got)
	}
}

func TestRefreshWatchlist(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Watchlist = []config.WatchedHolding{{Symbol: "MSFT", Shares: 5}}
	jobs := &fakeJobs{}
	a := New(cfg, applogger.Nop(), Services{}, nil, nil, nil, nil)
	a.news = jobs

	a.RefreshWatchlist(context.Background())
	if len(jobs.holdings) != 1 || jobs.holdings[0].Symbol != "MSFT" {
		t.Fatalf("refreshed %+v", jobs.holdings)
	}
}

func TestMaintain(t *testing.T) {
	cfg := testConfig(t)
	jobs := &fakeJobs{}
	sw := &fakeSweeper{}
	rec := &fakeRecorder{}
	a := New(cfg, applogger.Nop(), Services{}, nil, nil, fakeUsage{}, rec, WithSweepers(sw))
	a.news = jobs

	a.Maintain(context.Background())

	if jobs.retention != cfg.Store.Retention {
		t.Errorf("prune retention = %v, want %v", jobs.retention, cfg.Store.Retention)
	}
	if sw.swept != 1 {
		t.Errorf("swept %d times, want 1", sw.swept)
	}
	if len(rec.rows) != 1 || rec.rows[0] != (usageRow{"finnhub", 7, 1, 2}) {
		t.Errorf("usage rows = %+v", rec.rows)
	}
}

func TestMaintainToleratesPruneFailure(t *testing.T) {
	cfg := testConfig(t)
	sw := &fakeSweeper{}
	a := New(cfg, applogger.Nop(), Services{}, nil, nil, nil, nil, WithSweepers(sw))
	a.news = &fakeJobs{err: errors.New("disk full")}

	a.Maintain(context.Background())
	if sw.swept != 1 {
		t.Fatal("cache sweep skipped after prune failure")
	}
}

func TestShutdownClosesInReverseOrder(t *testing.T) {
	var order []string
	a := New(testConfig(t), applogger.Nop(), Services{}, nil, nil, nil, nil,
		WithCloser("store", func() error {
			order = append(order, "store")
			return nil
		}),
		WithCloser("kafka", func() error {
			order = append(order, "kafka")
			return errors.New("broker gone")
		}),
		WithCloser("unused", nil),
	)

	err := a.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "kafka: broker gone") {
		t.Fatalf("err = %v", err)
	}
	if strings.Join(order, ",") != "kafka,store" {
		t.Fatalf("close order = %v", order)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.RefreshCron = "every so often"
	a := New(cfg, applogger.Nop(), Services{}, nil, nil, nil, nil)

	if err := a.startScheduler(context.Background()); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}
