package finnhub

import (
	"context"
	"strconv"
	"strings"
	"time"

	"FolioFeed/internal/domain/models"
	drepo "FolioFeed/internal/domain/repository"
	xhttp "FolioFeed/pkg/http"
	"FolioFeed/pkg/util"
)

const (
	ProviderName   = "finnhub"
	DefaultBaseURL = "https://finnhub.io/api/v1"
)

// Caller performs a rate-limited, classified provider call.
type Caller interface {
	Do(ctx context.Context, provider string, req *xhttp.RequestOptions, dest interface{}) error
}

// Client is the Finnhub REST API: quotes, company profiles, symbol search
// and news. It is the primary provider for every capability.
type Client struct {
	caller  Caller
	apiKey  string
	baseURL string
	now     func() time.Time
}

var (
	_ drepo.QuoteProvider   = (*Client)(nil)
	_ drepo.NewsProvider    = (*Client)(nil)
	_ drepo.SymbolSearcher  = (*Client)(nil)
	_ drepo.ProfileProvider = (*Client)(nil)
)

// New creates a Finnhub client. An empty apiKey is allowed; every call then
// fails with ErrMisconfigured so fallbacks can serve.
func New(caller Caller, apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		caller:  caller,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (c *Client) Name() string { return ProviderName }

type fhQuote struct {
	C  float64 `json:"c"`  // current
	D  float64 `json:"d"`  // change
	DP float64 `json:"dp"` // percent change
	PC float64 `json:"pc"` // previous close
	T  int64   `json:"t"`
}

// Quote returns the latest quote. Finnhub answers unknown symbols with an
// all-zero body; that is passed through as a zero-price quote.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var q fhQuote
	if err := c.get(ctx, "/quote", map[string][]string{"symbol": {symbol}}, &q); err != nil {
		return models.Quote{}, err
	}
	fetched := c.now()
	if q.T > 0 {
		fetched = time.Unix(q.T, 0)
	}
	return models.Quote{
		Symbol:        symbol,
		Price:         q.C,
		Change:        q.D,
		ChangePercent: q.DP,
		PreviousClose: q.PC,
		Provider:      ProviderName,
		FetchedAt:     fetched,
	}, nil
}

type fhProfile struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Exchange  string  `json:"exchange"`
	MarketCap float64 `json:"marketCapitalization"` // millions
	Country   string  `json:"country"`
	Industry  string  `json:"finnhubIndustry"`
}

// Profile returns company reference data. Unknown symbols yield an empty
// profile, not an error.
func (c *Client) Profile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	var p fhProfile
	if err := c.get(ctx, "/stock/profile2", map[string][]string{"symbol": {symbol}}, &p); err != nil {
		return models.CompanyProfile{}, err
	}
	return models.CompanyProfile{
		Symbol:    symbol,
		Name:      strings.TrimSpace(p.Name),
		Exchange:  p.Exchange,
		MarketCap: p.MarketCap * 1e6,
		Country:   p.Country,
		Industry:  p.Industry,
	}, nil
}

type fhSearch struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// Search runs a free-text symbol lookup, preserving provider order.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchCandidate, error) {
	var res fhSearch
	if err := c.get(ctx, "/search", map[string][]string{"q": {query}}, &res); err != nil {
		return nil, err
	}
	out := make([]models.SearchCandidate, 0, len(res.Result))
	for _, r := range res.Result {
		sym := r.Symbol
		if sym == "" {
			sym = r.DisplaySymbol
		}
		if sym == "" {
			continue
		}
		out = append(out, models.SearchCandidate{Symbol: sym, Description: r.Description, Type: r.Type})
	}
	return out, nil
}

type fhNews struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// MarketNews returns general market news. The endpoint has no date filter,
// so the window is applied here.
func (c *Client) MarketNews(ctx context.Context, window drepo.Window) ([]models.RawArticle, error) {
	var items []fhNews
	if err := c.get(ctx, "/news", map[string][]string{"category": {"general"}}, &items); err != nil {
		return nil, err
	}
	return toRaw(items, window), nil
}

// CompanyNews returns news for one symbol inside window.
func (c *Client) CompanyNews(ctx context.Context, symbol string, window drepo.Window) ([]models.RawArticle, error) {
	var items []fhNews
	q := map[string][]string{
		"symbol": {symbol},
		"from":   {util.FormatDate(window.From)},
		"to":     {util.FormatDate(window.To)},
	}
	if err := c.get(ctx, "/company-news", q, &items); err != nil {
		return nil, err
	}
	return toRaw(items, drepo.Window{}), nil
}

func toRaw(items []fhNews, window drepo.Window) []models.RawArticle {
	out := make([]models.RawArticle, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Headline) == "" {
			continue
		}
		published := time.Unix(it.Datetime, 0).UTC()
		if !window.From.IsZero() && !window.Contains(published) {
			continue
		}
		var id string
		if it.ID != 0 {
			id = strconv.FormatInt(it.ID, 10)
		}
		out = append(out, models.RawArticle{
			ID:          id,
			Headline:    it.Headline,
			Summary:     it.Summary,
			URL:         it.URL,
			Source:      it.Source,
			PublishedAt: published,
			Provider:    ProviderName,
		})
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if c.apiKey == "" {
		return models.NewProviderError(ProviderName, models.ErrMisconfigured, nil)
	}
	return c.caller.Do(ctx, ProviderName, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     map[string]string{"X-Finnhub-Token": c.apiKey},
		QueryParams: query,
	}, dest)
}
