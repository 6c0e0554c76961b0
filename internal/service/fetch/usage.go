package fetch

import (
	"errors"
	"sort"
	"sync"
	"time"

	"FolioFeed/internal/domain/models"
)

// Usage keeps one rolling UsageWindow per provider. A window resets on the
// first record after resetInterval has elapsed since it started.
type Usage struct {
	mu            sync.Mutex
	windows       map[string]*models.UsageWindow
	resetInterval time.Duration
	now           func() time.Time
}

func NewUsage(resetInterval time.Duration, now func() time.Time) *Usage {
	if now == nil {
		now = time.Now
	}
	if resetInterval <= 0 {
		resetInterval = time.Minute
	}
	return &Usage{
		windows:       make(map[string]*models.UsageWindow),
		resetInterval: resetInterval,
		now:           now,
	}
}

// Record counts one attempt against provider. err is the classified outcome.
func (u *Usage) Record(provider string, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	w := u.windowLocked(provider)
	w.Requests++
	if err != nil {
		w.Errors++
		if errors.Is(err, models.ErrThrottled) {
			w.Throttled++
		}
	}
}

// Snapshot returns a copy of provider's current window.
func (u *Usage) Snapshot(provider string) models.UsageWindow {
	u.mu.Lock()
	defer u.mu.Unlock()
	return *u.windowLocked(provider)
}

// All returns copies of every window, sorted by provider.
func (u *Usage) All() []models.UsageWindow {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]models.UsageWindow, 0, len(u.windows))
	for name := range u.windows {
		out = append(out, *u.windowLocked(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func (u *Usage) windowLocked(provider string) *models.UsageWindow {
	now := u.now()
	w, ok := u.windows[provider]
	if !ok || now.Sub(w.WindowStart) > u.resetInterval {
		w = &models.UsageWindow{Provider: provider, WindowStart: now}
		u.windows[provider] = w
	}
	return w
}
