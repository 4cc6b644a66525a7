package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowStore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSlidingWindowStore(time.Minute, 2)
	store.now = func() time.Time { return now }

	allow := func(id string) bool {
		ok, err := store.Allow(id)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, allow("a"))
	now = now.Add(30 * time.Second)
	assert.True(t, allow("a"))
	assert.False(t, allow("a"))
	assert.True(t, allow("b"), "callers are limited independently")

	// the first hit leaves the window, the second is still inside it
	now = now.Add(31 * time.Second)
	assert.True(t, allow("a"))
	assert.False(t, allow("a"))
}

func TestSlidingWindowStoreSweepsIdleCallers(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSlidingWindowStore(time.Minute, 5)
	store.now = func() time.Time { return now }

	_, _ = store.Allow("idle")
	now = now.Add(2 * time.Minute)
	_, _ = store.Allow("active")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.hits, "idle")
	assert.Contains(t, store.hits, "active")
}
