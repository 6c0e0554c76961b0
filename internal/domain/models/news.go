package models

import "time"

type MentionType string

const (
	MentionPrimary   MentionType = "primary"
	MentionSecondary MentionType = "secondary"
	MentionMentioned MentionType = "mentioned"
)

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

type Category string

const (
	CategoryEarnings   Category = "earnings"
	CategoryProduct    Category = "product"
	CategoryRegulatory Category = "regulatory"
	CategoryMarket     Category = "market"
	CategoryGeneral    Category = "general"
)

// RawArticle is a news item as a provider returns it.
type RawArticle struct {
	ID          string    `json:"id,omitempty"` // provider-native, may be empty
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Provider    string    `json:"provider"`
}

type SymbolMention struct {
	Symbol         string      `json:"symbol"`
	RelevanceScore float64     `json:"relevance_score"`
	MentionType    MentionType `json:"mention_type"`
}

// NewsArticle is the canonical stored form. Each symbol appears at most once
// in RelatedSymbols and the list is never empty.
type NewsArticle struct {
	ExternalID     string          `json:"external_id"`
	Headline       string          `json:"headline"`
	Summary        string          `json:"summary"`
	URL            string          `json:"url"`
	Source         string          `json:"source"`
	PublishedAt    time.Time       `json:"published_at"`
	Category       Category        `json:"category"`
	Impact         Impact          `json:"impact"`
	RelatedSymbols []SymbolMention `json:"related_symbols"`
	IngestedAt     time.Time       `json:"ingested_at"`
}

// Mention returns the mention for symbol, if any.
func (a *NewsArticle) Mention(symbol string) (SymbolMention, bool) {
	for _, m := range a.RelatedSymbols {
		if m.Symbol == symbol {
			return m, true
		}
	}
	return SymbolMention{}, false
}

// RankedNewsItem is a stored article scored for one caller's portfolio.
type RankedNewsItem struct {
	Article        NewsArticle `json:"article"`
	RelevanceScore float64     `json:"relevance_score"`
}
