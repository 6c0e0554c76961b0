package models

// TickerSource records how a TickerCandidate was produced.
type TickerSource string

const (
	SourceDirectTicker TickerSource = "direct-ticker"
	SourceFuzzySearch  TickerSource = "fuzzy-search"
	SourceCache        TickerSource = "cache"
)

// TickerCandidate is a proposed mapping from a free-text company reference to
// a listed symbol. Values are never mutated after construction; derive a copy.
type TickerCandidate struct {
	Symbol       string       `json:"symbol"`
	CompanyName  string       `json:"company_name"`
	Confidence   float64      `json:"confidence"`
	SearchQuery  string       `json:"search_query"`
	IsExactMatch bool         `json:"is_exact_match"`
	Source       TickerSource `json:"source"`
}

// MarketValidation is the outcome of checking a symbol against live market data.
type MarketValidation struct {
	Symbol      string  `json:"symbol"`
	IsValid     bool    `json:"is_valid"`
	Confidence  float64 `json:"confidence"`
	CompanyName string  `json:"company_name,omitempty"`
	Exchange    string  `json:"exchange,omitempty"`
	MarketCap   float64 `json:"market_cap,omitempty"` // USD, zero when unknown
	Error       string  `json:"error,omitempty"`
}

// Resolution is one entry of a batch symbol resolution. Candidate is nil when
// nothing cleared the confidence threshold.
type Resolution struct {
	Query      string            `json:"query"`
	Candidate  *TickerCandidate  `json:"candidate,omitempty"`
	Validation *MarketValidation `json:"validation,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// SearchCandidate is one row of a provider symbol search.
type SearchCandidate struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
}

// CompanyProfile is provider reference data for a symbol. An empty Name means
// the provider has no profile.
type CompanyProfile struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Exchange  string  `json:"exchange"`
	MarketCap float64 `json:"market_cap"` // USD
	Country   string  `json:"country,omitempty"`
	Industry  string  `json:"industry,omitempty"`
}
