package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FolioFeed/internal/domain/models"
	drepo "FolioFeed/internal/domain/repository"
	"FolioFeed/internal/service/fetch"
	"FolioFeed/internal/service/ratelimit"
	xhttp "FolioFeed/pkg/http"
	applogger "FolioFeed/pkg/logger"
	"FolioFeed/pkg/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	caller := fetch.NewClient(xhttp.NewClient(), ratelimit.New(0), fetch.NewUsage(time.Minute, nil),
		metrics.Nop{}, applogger.Nop(), fetch.Config{MaxAttempts: 1})
	return New(caller, "test-key", srv.URL)
}

func TestQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" || r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("X-Finnhub-Token") != "test-key" {
			t.Errorf("missing token header")
		}
		_, _ = w.Write([]byte(`{"c":187.5,"d":1.5,"dp":0.81,"pc":186,"t":1709294400}`))
	})

	q, err := c.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 187.5 || q.Change != 1.5 || q.Provider != ProviderName {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestProfileConvertsMarketCapToDollars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Apple Inc","exchange":"NASDAQ NMS - GLOBAL MARKET","marketCapitalization":2900000,"ticker":"AAPL"}`))
	})

	p, err := c.Profile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Apple Inc" || p.MarketCap != 2.9e12 {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestSearchKeepsProviderOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "apple" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"count":2,"result":[
			{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},
			{"description":"APPLE HOSPITALITY REIT INC","displaySymbol":"APLE","symbol":"APLE","type":"Common Stock"}]}`))
	})

	res, err := c.Search(context.Background(), "apple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 || res[0].Symbol != "AAPL" || res[1].Symbol != "APLE" {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestCompanyNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "2024-02-27" || q.Get("to") != "2024-03-01" {
			t.Errorf("unexpected window %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			{"id":1,"datetime":1709290000,"headline":"Apple beats estimates","summary":"s","url":"https://x/1","source":"Reuters"},
			{"id":2,"datetime":1709290000,"headline":"  ","url":"https://x/2"}]`))
	})

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	items, err := c.CompanyNews(context.Background(), "AAPL", drepo.LookbackWindow(now, 3*24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("blank headlines must be dropped, got %d items", len(items))
	}
	if items[0].ID != "1" || items[0].Provider != ProviderName {
		t.Fatalf("unexpected article %+v", items[0])
	}
}

func TestMarketNewsAppliesWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"datetime":1709290000,"headline":"Stocks rally","url":"https://x/1"},
			{"id":2,"datetime":1600000000,"headline":"Old news","url":"https://x/2"}]`))
	})

	items, err := c.MarketNews(context.Background(), drepo.LookbackWindow(now, 24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Headline != "Stocks rally" {
		t.Fatalf("expected only the in-window article, got %+v", items)
	}
}

func TestMissingKeyIsMisconfigured(t *testing.T) {
	c := New(nil, "", "")
	_, err := c.Quote(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}
