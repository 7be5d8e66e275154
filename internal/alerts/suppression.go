package alerts

import (
	"time"

	"gastos/internal/cache"
)

// DefaultSuppressionWindow is how long a fired scope key stays muted.
const DefaultSuppressionWindow = time.Hour

// Suppressor remembers which (user, scope key) pairs fired recently.
// The backing cache is transient; losing it on restart only re-opens windows.
type Suppressor struct {
	entries cache.Cache[time.Time]
	now     func() time.Time
}

// NewSuppressor creates an in-memory suppressor with the given window.
func NewSuppressor(window time.Duration, now func() time.Time) *Suppressor {
	if now == nil {
		now = time.Now
	}
	return &Suppressor{
		entries: cache.NewLRUCache[time.Time](0, window, cache.WithClock(now)),
		now:     now,
	}
}

// NewSuppressorWithCache uses an externally provided cache, whose TTL is the window.
func NewSuppressorWithCache(entries cache.Cache[time.Time], now func() time.Time) *Suppressor {
	if now == nil {
		now = time.Now
	}
	return &Suppressor{entries: entries, now: now}
}

// Allow records the pair and reports true unless it fired inside the window.
func (s *Suppressor) Allow(userID, scopeKey string) bool {
	return s.entries.Add(suppressionKey(userID, scopeKey), s.now())
}

// LastFired returns when the pair last fired, if still inside the window.
func (s *Suppressor) LastFired(userID, scopeKey string) (time.Time, bool) {
	return s.entries.Get(suppressionKey(userID, scopeKey))
}

// Prune drops expired entries when the backing cache supports it.
func (s *Suppressor) Prune() int {
	if c, ok := s.entries.(cache.Cleaner); ok {
		return c.CleanExpired()
	}
	return 0
}

// CleanExpired lets the suppressor be registered with a cache.Manager.
func (s *Suppressor) CleanExpired() int {
	return s.Prune()
}

// Size returns the number of tracked pairs.
func (s *Suppressor) Size() int {
	return s.entries.Size()
}

func suppressionKey(userID, scopeKey string) string {
	return userID + "|" + scopeKey
}
