package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/service/fallback"
	xhttp "FolioFeed/pkg/http"
	xlogger "FolioFeed/pkg/logger"
)

type stubSymbols struct{ got []string }

func (s *stubSymbols) ResolveSymbols(_ context.Context, queries []string) []models.Resolution {
	s.got = queries
	out := make([]models.Resolution, len(queries))
	for i, q := range queries {
		out[i] = models.Resolution{Query: q}
		if q == "apple" {
			out[i].Candidate = &models.TickerCandidate{Symbol: "AAPL", Confidence: 0.95}
		} else {
			out[i].Error = "no match"
		}
	}
	return out
}

type stubQuotes struct{ got []string }

func (s *stubQuotes) GetQuotes(_ context.Context, symbols []string) []models.QuoteResult {
	s.got = symbols
	out := make([]models.QuoteResult, len(symbols))
	for i, sym := range symbols {
		out[i] = models.QuoteResult{Symbol: sym, Quote: &models.Quote{Symbol: sym, Price: 100}}
	}
	return out
}

type stubNews struct {
	items []models.RankedNewsItem
	err   error
	got   []models.Holding
	limit int
}

func (s *stubNews) GetRankedNewsForHoldings(_ context.Context, h []models.Holding, limit int) ([]models.RankedNewsItem, error) {
	s.got, s.limit = h, limit
	return s.items, s.err
}

type stubOnboard struct{ err error }

func (s stubOnboard) Onboard(context.Context, string) (*models.Portfolio, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Portfolio{Holdings: []models.PortfolioHolding{{Holding: models.Holding{Symbol: "AAPL", Shares: 10}}}}, nil
}

type stubUsage struct{}

func (stubUsage) All() []models.UsageWindow {
	return []models.UsageWindow{{Provider: "finnhub", Requests: 3}}
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

type fixture struct {
	e       *echo.Echo
	symbols *stubSymbols
	quotes  *stubQuotes
	news    *stubNews
}

func newFixture(onboard Onboarder, health HealthChecker) *fixture {
	f := &fixture{e: echo.New(), symbols: &stubSymbols{}, quotes: &stubQuotes{}, news: &stubNews{}}
	h := NewPortfolioEchoHandler(xlogger.Nop(), f.symbols, f.quotes, f.news, onboard, stubUsage{}, health)
	h.RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) xhttp.ListDataResponse {
	t.Helper()
	var out struct {
		Data xhttp.ListDataResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out.Data
}

func TestResolveSymbolsPartial(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	rec := f.do(http.MethodGet, "/api/symbols/resolve?q=apple&q=qwxz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	out := decodeList(t, rec)
	if out.Total != 2 || out.Failed != 1 {
		t.Errorf("total=%d failed=%d, want 2 and 1", out.Total, out.Failed)
	}
	if len(f.symbols.got) != 2 || f.symbols.got[0] != "apple" {
		t.Errorf("queries = %v", f.symbols.got)
	}
}

func TestResolveSymbolsRequiresQuery(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	rec := f.do(http.MethodGet, "/api/symbols/resolve", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuotesParsesSymbolList(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	rec := f.do(http.MethodGet, "/api/quotes?symbols=aapl,msft", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(f.quotes.got) != 2 {
		t.Fatalf("symbols = %v", f.quotes.got)
	}
	if out := decodeList(t, rec); out.Total != 2 || out.Failed != 0 {
		t.Errorf("total=%d failed=%d", out.Total, out.Failed)
	}
}

func TestRankedNewsDefaultsLimit(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	f.news.items = []models.RankedNewsItem{{RelevanceScore: 40.6}}
	rec := f.do(http.MethodPost, "/api/news/ranked", `{"holdings":[{"symbol":"TSLA","shares":100}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if f.news.limit != 50 {
		t.Errorf("limit = %d, want default 50", f.news.limit)
	}
	if len(f.news.got) != 1 || f.news.got[0].Symbol != "TSLA" {
		t.Errorf("holdings = %+v", f.news.got)
	}
}

func TestRankedNewsRejectsBadTicker(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	rec := f.do(http.MethodPost, "/api/news/ranked", `{"holdings":[{"symbol":"not a ticker!","shares":1}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRankedNewsAllProvidersDown(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	f.news.err = &fallback.Error{
		Capability: "company-news",
		Failures: []fallback.Failure{
			{Provider: "finnhub", Err: errors.New("finnhub: throttled")},
			{Provider: "rss", Err: errors.New("rss: timeout")},
		},
	}
	rec := f.do(http.MethodPost, "/api/news/ranked", `{"holdings":[{"symbol":"AAPL","shares":1}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "finnhub: throttled") {
		t.Errorf("body %s does not carry the primary error", rec.Body.String())
	}
}

func TestOnboardMisconfigured(t *testing.T) {
	f := newFixture(stubOnboard{err: models.ErrMisconfigured}, nil)
	rec := f.do(http.MethodPost, "/api/portfolio/onboard", `{"text":"10 shares of apple"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestOnboard(t *testing.T) {
	f := newFixture(stubOnboard{}, nil)
	rec := f.do(http.MethodPost, "/api/portfolio/onboard", `{"text":"10 shares of apple"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"AAPL"`) {
		t.Errorf("body %s", rec.Body.String())
	}
}

func TestUsageAndHealth(t *testing.T) {
	f := newFixture(stubOnboard{}, stubHealth{})
	if rec := f.do(http.MethodGet, "/api/usage", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "finnhub") {
		t.Errorf("usage: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	down := newFixture(stubOnboard{}, stubHealth{err: errors.New("database is locked")})
	if rec := down.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz with failing store = %d, want 503", rec.Code)
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", xhttp.NotFoundError("gone"), http.StatusNotFound},
		{"misconfigured", models.NewProviderError("gemini", models.ErrMisconfigured, errors.New("no key")), http.StatusServiceUnavailable},
		{"invalid symbol", models.ErrInvalidSymbol, http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"fallback", &fallback.Error{Capability: "quote"}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toAppError(tt.err).Status; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
