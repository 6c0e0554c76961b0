package relevance

import (
	"sort"
	"strings"

	"FolioFeed/internal/domain/models"
)

const (
	directHeadlineScore = 0.9
	directRepeatScore   = 0.7
	directMentionScore  = 0.6
	aliasHeadlineScore  = 0.85
	aliasRepeatScore    = 0.6
	aliasMentionScore   = 0.5
)

// text holds the two views of an article used for matching.
type text struct {
	headlineTokens []string
	allTokens      []string
	headlineWords  string // " w1 w2 ... " lowercase
	allWords       string
}

func newText(headline, summary string) text {
	all := headline + " " + summary
	return text{
		headlineTokens: symbolTokens(headline),
		allTokens:      symbolTokens(all),
		headlineWords:  wordLine(headline),
		allWords:       wordLine(all),
	}
}

func isSymbolRune(r rune) bool {
	return r == '.' || r == '$' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// symbolTokens splits on anything that cannot be part of a ticker. "$TSLA"
// and "TSLA." both yield "TSLA".
func symbolTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return !isSymbolRune(r) })
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimLeft(strings.TrimRight(f, "."), "$")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// wordLine lowercases s into space-separated words with a leading and
// trailing space so phrases can be matched on word boundaries.
func wordLine(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '&' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	if len(fields) == 0 {
		return " "
	}
	return " " + strings.Join(fields, " ") + " "
}

func countSymbol(tokens []string, symbol string) int {
	n := 0
	for _, t := range tokens {
		if strings.EqualFold(t, symbol) {
			n++
		}
	}
	return n
}

func countPhrase(line, phrase string) int {
	p := wordLine(phrase)
	if p == " " {
		return 0
	}
	n := 0
	for {
		i := strings.Index(line, p)
		if i < 0 {
			return n
		}
		n++
		line = line[i+len(p)-1:]
	}
}

func containsAny(line string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(line, " "+k+" ") {
			hits++
		}
	}
	return hits
}

// issuerName reduces a company name such as "Apple Inc." to the words an
// article would use ("apple").
func issuerName(name string) string {
	words := strings.Fields(strings.TrimSpace(wordLine(name)))
	for len(words) > 0 {
		if _, ok := nameSuffixes[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// graded turns headline and whole-text hit counts into a mention.
func graded(symbol string, inHeadline, inText int, headline, repeat, once float64) (models.SymbolMention, bool) {
	switch {
	case inText == 0 && inHeadline == 0:
		return models.SymbolMention{}, false
	case inHeadline > 0:
		return models.SymbolMention{Symbol: symbol, RelevanceScore: headline, MentionType: models.MentionPrimary}, true
	case inText > 1:
		return models.SymbolMention{Symbol: symbol, RelevanceScore: repeat, MentionType: models.MentionSecondary}, true
	default:
		return models.SymbolMention{Symbol: symbol, RelevanceScore: once, MentionType: models.MentionMentioned}, true
	}
}

// mentions matches every tracked symbol against the article. The ticker
// itself and the issuer's canonical name are direct evidence; other aliases
// are weaker and only count when there is no direct evidence.
func mentions(t text, tracked []string, names map[string]string) []models.SymbolMention {
	var out []models.SymbolMention
	for _, sym := range tracked {
		aliases := issuerAliases[sym]
		canonical := issuerName(names[sym])
		if canonical == "" && len(aliases) > 0 {
			canonical = aliases[0]
		}

		h := countSymbol(t.headlineTokens, sym) + countPhrase(t.headlineWords, canonical)
		a := countSymbol(t.allTokens, sym) + countPhrase(t.allWords, canonical)
		if m, ok := graded(sym, h, a, directHeadlineScore, directRepeatScore, directMentionScore); ok {
			out = append(out, m)
			continue
		}

		h, a = 0, 0
		for _, alias := range aliases {
			if alias == canonical {
				continue
			}
			h += countPhrase(t.headlineWords, alias)
			a += countPhrase(t.allWords, alias)
		}
		if m, ok := graded(sym, h, a, aliasHeadlineScore, aliasRepeatScore, aliasMentionScore); ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

func classifyImpact(t text) models.Impact {
	pos := containsAny(t.allWords, positiveKeywords)
	neg := containsAny(t.allWords, negativeKeywords)
	switch {
	case pos > neg:
		return models.ImpactPositive
	case neg > pos:
		return models.ImpactNegative
	default:
		return models.ImpactNeutral
	}
}

func classifyCategory(t text) models.Category {
	for _, rule := range categoryRules {
		if containsAny(t.allWords, rule.keywords) > 0 {
			return rule.category
		}
	}
	return models.CategoryGeneral
}
