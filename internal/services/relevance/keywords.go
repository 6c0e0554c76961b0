package relevance

import "FolioFeed/internal/domain/models"

// Keyword tables are matched as whole lowercase words or word sequences.

var positiveKeywords = []string{
	"beat", "beats", "surge", "surges", "soar", "soars", "rally", "rallies",
	"gain", "gains", "jump", "jumps", "rise", "rises", "record", "growth",
	"upgrade", "upgraded", "outperform", "bullish", "profit", "strong",
	"raises guidance", "buyback", "approval", "approved",
}

var negativeKeywords = []string{
	"miss", "misses", "plunge", "plunges", "drop", "drops", "fall", "falls",
	"decline", "declines", "slump", "loss", "losses", "weak", "downgrade",
	"downgraded", "underperform", "bearish", "lawsuit", "recall", "layoffs",
	"cuts guidance", "probe", "bankruptcy", "fraud",
}

type categoryRule struct {
	category models.Category
	keywords []string
}

// categoryRules are checked in order; the first rule with a hit wins.
var categoryRules = []categoryRule{
	{models.CategoryEarnings, []string{
		"earnings", "revenue", "quarterly", "quarter", "eps", "guidance",
		"profit", "results", "q1", "q2", "q3", "q4", "fiscal",
	}},
	{models.CategoryProduct, []string{
		"launch", "launches", "unveil", "unveils", "unveiled", "release",
		"releases", "product", "announces new", "introduces", "debuts",
	}},
	{models.CategoryRegulatory, []string{
		"sec", "regulator", "regulators", "regulatory", "antitrust", "ftc",
		"doj", "lawsuit", "fine", "fined", "probe", "investigation", "settlement",
	}},
	{models.CategoryMarket, []string{
		"market", "markets", "stocks", "index", "fed", "economy", "inflation",
		"dow", "nasdaq", "s&p", "treasury", "futures",
	}},
}

// issuerAliases maps a symbol to the names it goes by. The first entry is the
// issuer's canonical name; the rest are looser associations.
var issuerAliases = map[string][]string{
	"AAPL":  {"apple", "iphone"},
	"MSFT":  {"microsoft", "azure"},
	"GOOGL": {"alphabet", "google"},
	"GOOG":  {"alphabet", "google"},
	"AMZN":  {"amazon", "aws"},
	"META":  {"meta platforms", "facebook", "instagram"},
	"NVDA":  {"nvidia"},
	"TSLA":  {"tesla"},
	"NFLX":  {"netflix"},
	"AMD":   {"advanced micro devices"},
	"INTC":  {"intel"},
	"BRK.B": {"berkshire hathaway", "berkshire"},
	"JPM":   {"jpmorgan", "jpmorgan chase"},
	"V":     {"visa"},
	"DIS":   {"disney"},
}

// corporate suffixes dropped from provided company names
var nameSuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "corp": {}, "corporation": {}, "co": {},
	"company": {}, "ltd": {}, "limited": {}, "plc": {}, "holdings": {},
	"group": {}, "class": {}, "a": {}, "b": {}, "c": {}, "sa": {}, "ag": {},
	"nv": {}, "the": {}, "&": {},
}
