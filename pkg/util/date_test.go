package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeRSS(t *testing.T) {
	got, ok := ParseTime("Thu, 10 Oct 2024 10:10:10 +0000")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Hour() != 10 || got.UTC().Day() != 10 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	got := FormatDate(time.Date(2024, 3, 1, 22, 0, 0, 0, loc))
	if got != "2024-03-02" {
		t.Fatalf("expected UTC date 2024-03-02, got %s", got)
	}
}

func TestHoursSinceClampsFuture(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if h := HoursSince(now, now.Add(time.Hour)); h != 0 {
		t.Fatalf("expected 0 for a future timestamp, got %v", h)
	}
	if h := HoursSince(now, now.Add(-90*time.Minute)); h != 1.5 {
		t.Fatalf("expected 1.5, got %v", h)
	}
}

func TestSplitSymbols(t *testing.T) {
	got := SplitSymbols(" aapl, MSFT;tsla  aapl ")
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
