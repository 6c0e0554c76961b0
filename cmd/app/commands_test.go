package main

import "testing"

func TestParseHoldings(t *testing.T) {
	got, err := parseHoldings([]string{"tsla=100", " AAPL = 2.5 ", "msft"})
	if err != nil {
		t.Fatalf("parseHoldings: %v", err)
	}
	want := []struct {
		sym    string
		shares float64
	}{{"TSLA", 100}, {"AAPL", 2.5}, {"MSFT", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %d holdings, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Symbol != w.sym || got[i].Shares != w.shares {
			t.Errorf("holding %d = %+v, want %s=%v", i, got[i], w.sym, w.shares)
		}
	}
}

func TestParseHoldingsRejectsBadInput(t *testing.T) {
	for _, in := range []string{"=10", "AAPL=ten"} {
		if _, err := parseHoldings([]string{in}); err == nil {
			t.Errorf("parseHoldings(%q) succeeded", in)
		}
	}
}
