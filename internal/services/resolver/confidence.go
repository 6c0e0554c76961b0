package resolver

import (
	"math"
	"strings"

	"FolioFeed/internal/domain/models"
)

const (
	// ExactSymbolConfidence is assigned to a direct ticker hit and to a search
	// result whose symbol equals the query.
	ExactSymbolConfidence = 0.95
	// DescriptionMatchConfidence is the floor for a result whose description
	// contains the query.
	DescriptionMatchConfidence = 0.85
	// MinConfidence is the acceptance threshold. Below it a match is noise.
	MinConfidence = 0.4

	bothPresentConfidence = 0.95
	profileOnlyConfidence = 0.7
	quoteOnlyConfidence   = 0.6

	minorExchangePenalty = 0.2
	minorExchangeFloor   = 0.5
	microCapPenalty      = 0.1
	microCapFloor        = 0.6

	// MicroCapThreshold is the market capitalization, in USD, below which a
	// listing is treated as micro-cap.
	MicroCapThreshold = 50_000_000
)

// majorExchanges are matched as substrings of the upper-cased exchange name,
// which covers provider variants such as "NASDAQ NMS - GLOBAL MARKET".
var majorExchanges = []string{
	"NASDAQ",
	"NEW YORK STOCK EXCHANGE",
	"NYSE",
	"AMERICAN STOCK EXCHANGE",
	"CBOE",
	"LONDON STOCK EXCHANGE",
	"TORONTO STOCK EXCHANGE",
	"TOKYO STOCK EXCHANGE",
	"HONG KONG EXCHANGES",
	"EURONEXT",
	"DEUTSCHE BOERSE",
	"XETRA",
}

// IsMajorExchange reports whether exchange is one of the recognized majors.
func IsMajorExchange(exchange string) bool {
	ex := strings.ToUpper(exchange)
	for _, m := range majorExchanges {
		if strings.Contains(ex, m) {
			return true
		}
	}
	return false
}

// ValidationConfidence scores market evidence for a symbol. hasProfile and
// hasQuote say whether each lookup returned well-formed data.
func ValidationConfidence(hasProfile, hasQuote bool, profile models.CompanyProfile) float64 {
	var conf float64
	switch {
	case hasProfile && hasQuote:
		conf = bothPresentConfidence
	case hasProfile:
		conf = profileOnlyConfidence
	case hasQuote:
		conf = quoteOnlyConfidence
	default:
		return 0
	}

	if !hasProfile {
		return conf
	}
	// an empty exchange is missing data, not evidence of a minor venue
	if profile.Exchange != "" && !IsMajorExchange(profile.Exchange) {
		conf = penalize(conf, minorExchangePenalty, minorExchangeFloor)
	}
	if profile.MarketCap > 0 && profile.MarketCap < MicroCapThreshold {
		conf = penalize(conf, microCapPenalty, microCapFloor)
	}
	return conf
}

// penalize subtracts d but never pushes conf below floor. A value already at
// or below the floor is left alone.
func penalize(conf, d, floor float64) float64 {
	if conf <= floor {
		return conf
	}
	return math.Max(floor, conf-d)
}

// CombineConfidence merges a text-match confidence g with market evidence.
// Strong market evidence dominates; weak evidence mostly defers to g. The
// middle tier takes the better of its own blend and the weak-tier blend so
// the result never drops as market confidence rises.
func CombineConfidence(g float64, m models.MarketValidation) float64 {
	if !m.IsValid {
		return math.Min(0.3, g*0.5)
	}
	mc := m.Confidence
	switch {
	case mc >= 0.9:
		return math.Max(g, mc)
	case mc >= 0.7:
		return math.Max(0.4*g+0.6*mc, 0.7*g+0.3*mc)
	default:
		return 0.7*g + 0.3*mc
	}
}
