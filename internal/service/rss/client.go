package rss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FolioFeed/internal/domain/models"
	drepo "FolioFeed/internal/domain/repository"
	xhttp "FolioFeed/pkg/http"
	"FolioFeed/pkg/util"

	"github.com/mmcdole/gofeed"
)

const (
	ProviderName   = "yahoo-rss"
	DefaultBaseURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

	// Index symbols standing in for "the market".
	marketSymbols = "^GSPC,^DJI,^IXIC"
	maxSummary    = 500
)

// Caller performs a rate-limited, classified provider call.
type Caller interface {
	Do(ctx context.Context, provider string, req *xhttp.RequestOptions, dest interface{}) error
}

// Client reads Yahoo Finance headline feeds. It needs no key and serves as the
// news fallback. Feeds are fetched through the shared caller so spacing and
// retry apply, then parsed with gofeed.
type Client struct {
	caller  Caller
	baseURL string
	now     func() time.Time
}

var _ drepo.NewsProvider = (*Client)(nil)

func New(caller Caller, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{caller: caller, baseURL: baseURL, now: time.Now}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) MarketNews(ctx context.Context, window drepo.Window) ([]models.RawArticle, error) {
	return c.fetch(ctx, marketSymbols, window)
}

func (c *Client) CompanyNews(ctx context.Context, symbol string, window drepo.Window) ([]models.RawArticle, error) {
	return c.fetch(ctx, symbol, window)
}

func (c *Client) fetch(ctx context.Context, symbols string, window drepo.Window) ([]models.RawArticle, error) {
	var body []byte
	req := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL,
		QueryParams: map[string][]string{
			"s":      {symbols},
			"region": {"US"},
			"lang":   {"en-US"},
		},
	}
	if err := c.caller.Do(ctx, ProviderName, req, &body); err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &models.ProviderError{Provider: ProviderName, Err: fmt.Errorf("parse feed: %w", err)}
	}

	now := c.now()
	out := make([]models.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		published := now
		switch {
		case item.PublishedParsed != nil:
			published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			published = *item.UpdatedParsed
		default:
			if t, ok := util.ParseTime(item.Published); ok {
				published = t
			}
		}
		if !window.From.IsZero() && !window.Contains(published) {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		source := ProviderName
		if feed.Title != "" {
			source = feed.Title
		}

		out = append(out, models.RawArticle{
			ID:          item.GUID,
			Headline:    title,
			Summary:     truncate(stripHTML(desc), maxSummary),
			URL:         item.Link,
			Source:      source,
			PublishedAt: published.UTC(),
			Provider:    ProviderName,
		})
	}
	return out, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
