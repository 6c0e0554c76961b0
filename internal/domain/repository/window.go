package repository

import "time"

// Window is a closed publication-time range for news queries.
type Window struct {
	From time.Time
	To   time.Time
}

// LookbackWindow returns [now-lookback, now].
func LookbackWindow(now time.Time, lookback time.Duration) Window {
	if lookback <= 0 {
		lookback = 72 * time.Hour
	}
	return Window{From: now.Add(-lookback), To: now}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// DayKey renders the window at day granularity. Two windows inside the same
// days share a key, which keeps cache keys stable across a day.
func (w Window) DayKey() string {
	return w.From.UTC().Format("2006-01-02") + ".." + w.To.UTC().Format("2006-01-02")
}
