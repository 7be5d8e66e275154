package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gastos/internal/cache"
)

func TestSuppressorAllow(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSuppressor(time.Hour, c.Now)

	assert.True(t, s.Allow("u1", "budget_warning:daily"))
	assert.False(t, s.Allow("u1", "budget_warning:daily"))
	assert.True(t, s.Allow("u1", "budget_exceeded:daily"))
	assert.True(t, s.Allow("u2", "budget_warning:daily"))

	fired, ok := s.LastFired("u1", "budget_warning:daily")
	assert.True(t, ok)
	assert.Equal(t, c.Now(), fired)

	c.Advance(time.Hour)
	assert.Equal(t, 3, s.Prune())
	assert.Equal(t, 0, s.Size())
	assert.True(t, s.Allow("u1", "budget_warning:daily"))
}

func TestSuppressorWithExternalCache(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	backing := cache.NewLRUCache[time.Time](10, 30*time.Minute, cache.WithClock(c.Now))
	s := NewSuppressorWithCache(backing, c.Now)

	assert.True(t, s.Allow("u1", "k"))
	c.Advance(30 * time.Minute)
	assert.True(t, s.Allow("u1", "k"))
	assert.Equal(t, 1, backing.Size())
}
