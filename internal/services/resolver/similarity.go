package resolver

import (
	"math"
	"strings"
	"unicode"
)

// maxOverlapScore keeps a character-set match below a containment match.
const maxOverlapScore = 0.79

// similarity compares two lowercased strings: 1 for equality, 0.8 when one
// contains the other, otherwise the Jaccard overlap of their character sets
// capped at maxOverlapScore.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}
	return math.Min(jaccard(charSet(a), charSet(b)), maxOverlapScore)
}

func charSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

func jaccard(a, b map[rune]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for r := range a {
		if _, ok := b[r]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// scoreCandidate rates one search result against the normalized query.
func scoreCandidate(query, symbol, description string) float64 {
	sym := strings.ToLower(symbol)
	desc := strings.ToLower(description)

	score := similarity(query, desc)
	if s := similarity(query, sym); s > score {
		score = s
	}

	if sym == query {
		return ExactSymbolConfidence
	}
	if strings.Contains(desc, query) && score < DescriptionMatchConfidence {
		score = DescriptionMatchConfidence
	}
	return score
}

// descriptionGap is how much longer desc is than query. Among equal scores
// the tighter description wins.
func descriptionGap(query, description string) int {
	gap := len(description) - len(query)
	if gap < 0 {
		return -gap
	}
	return gap
}
