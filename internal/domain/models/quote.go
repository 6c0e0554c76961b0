package models

import "time"

type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	PreviousClose float64   `json:"previous_close,omitempty"`
	Provider      string    `json:"provider"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// QuoteResult is one entry of a batch quote request; exactly one of Quote and
// Error is set.
type QuoteResult struct {
	Symbol string `json:"symbol"`
	Quote  *Quote `json:"quote,omitempty"`
	Error  string `json:"error,omitempty"`
}

// UsageWindow counts provider calls since WindowStart. Observability only.
type UsageWindow struct {
	Provider    string    `json:"provider"`
	Requests    int64     `json:"requests"`
	Errors      int64     `json:"errors"`
	Throttled   int64     `json:"throttled"`
	WindowStart time.Time `json:"window_start"`
}
