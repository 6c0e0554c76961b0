package models

import (
	"math"
	"sort"
	"strings"
)

// PortfolioWeights maps symbol to weight, ln(shares+1).
type PortfolioWeights map[string]float64

// ShareWeight is ln(shares+1), with negative share counts treated as zero.
func ShareWeight(shares float64) float64 {
	if shares < 0 || math.IsNaN(shares) {
		shares = 0
	}
	return math.Log(shares + 1)
}

// Symbols returns the symbols ordered by descending weight, ties by symbol.
func (w PortfolioWeights) Symbols() []string {
	out := make([]string, 0, len(w))
	for s := range w {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if w[out[i]] != w[out[j]] {
			return w[out[i]] > w[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

type Holding struct {
	Symbol      string  `json:"symbol" validate:"required,ticker"`
	Shares      float64 `json:"shares" validate:"gte=0"`
	CompanyName string  `json:"company_name,omitempty"`
}

// WeightsFromHoldings sums shares per symbol and converts them to weights.
func WeightsFromHoldings(holdings []Holding) PortfolioWeights {
	shares := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		sym := strings.ToUpper(strings.TrimSpace(h.Symbol))
		if sym == "" {
			continue
		}
		if h.Shares > 0 {
			shares[sym] += h.Shares
		} else if _, ok := shares[sym]; !ok {
			shares[sym] = 0
		}
	}
	w := make(PortfolioWeights, len(shares))
	for sym, n := range shares {
		w[sym] = ShareWeight(n)
	}
	return w
}

// Intent is one holding statement extracted from free text, e.g.
// "10 shares of apple".
type Intent struct {
	Intent string  `json:"intent"`
	Shares float64 `json:"shares"`
}

// PortfolioHolding is a resolved holding.
type PortfolioHolding struct {
	Holding
	Weight     float64 `json:"weight"`
	Confidence float64 `json:"confidence"`
}

// Portfolio is the result of onboarding free text.
type Portfolio struct {
	Holdings   []PortfolioHolding `json:"holdings"`
	Unresolved []string           `json:"unresolved,omitempty"`
}
