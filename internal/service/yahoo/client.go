package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"FolioFeed/internal/domain/models"
	drepo "FolioFeed/internal/domain/repository"
	xhttp "FolioFeed/pkg/http"
)

const (
	ProviderName   = "yahoo"
	DefaultBaseURL = "https://query1.finance.yahoo.com"
)

// Caller performs a rate-limited, classified provider call.
type Caller interface {
	Do(ctx context.Context, provider string, req *xhttp.RequestOptions, dest interface{}) error
}

// Client reads quotes from the Yahoo Finance chart API. It needs no key and
// serves as the quote fallback.
type Client struct {
	caller  Caller
	baseURL string
}

var _ drepo.QuoteProvider = (*Client)(nil)

func New(caller Caller, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{caller: caller, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() string { return ProviderName }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				PreviousClose      float64 `json:"previousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var chart chartResponse
	req := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(yahooSymbol(symbol))),
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"range":    {"1d"},
		},
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}
	if err := c.caller.Do(ctx, ProviderName, req, &chart); err != nil {
		return models.Quote{}, err
	}

	if e := chart.Chart.Error; e != nil {
		return models.Quote{}, models.NewProviderError(ProviderName, models.ErrNotFound, errors.New(e.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return models.Quote{}, models.NewProviderError(ProviderName, models.ErrNotFound, errors.New("no data returned"))
	}

	meta := chart.Chart.Result[0].Meta
	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	q := models.Quote{
		Symbol:        symbol,
		Price:         meta.RegularMarketPrice,
		PreviousClose: prev,
		Provider:      ProviderName,
		FetchedAt:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if prev > 0 {
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

// yahooSymbol maps class-share dots to Yahoo's dash form (BRK.B -> BRK-B).
func yahooSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}
