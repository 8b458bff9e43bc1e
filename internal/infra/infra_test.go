package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache[[]string](time.Minute)
	c.Set("discord:123", []string{"a", "b"})

	got, ok := c.Get("discord:123")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	entry, ok := c.Entry("k")
	require.True(t, ok)
	assert.Equal(t, now, entry.StoredAt)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	c.Cleanup()
	assert.Zero(t, c.Len())
}

func TestCacheNoTTLKeepsEntries(t *testing.T) {
	now := time.Now()
	c := NewCache[string](0)
	c.now = func() time.Time { return now }
	c.Set("k", "v")

	now = now.Add(24 * time.Hour)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx))
	}

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiterPause(t *testing.T) {
	rl := NewRateLimiter(5, time.Millisecond)
	rl.Pause(time.Hour)
	assert.True(t, rl.PausedUntil().After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}
