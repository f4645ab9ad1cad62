package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_Expiry(t *testing.T) {
	cache := NewCacheService()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("k", 1, time.Minute)
	v, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestCacheService_InvalidateByPrefix(t *testing.T) {
	cache := NewCacheService()
	cache.Set("stats:disputes", 1, time.Minute)
	cache.Set("stats:other", 2, time.Minute)
	cache.Set("user:1", 3, time.Minute)

	cache.InvalidateByPrefix("stats:")

	_, ok := cache.Get("stats:disputes")
	assert.False(t, ok)
	_, ok = cache.Get("user:1")
	assert.True(t, ok)
}

func TestCacheService_GetOrSet(t *testing.T) {
	cache := NewCacheService()
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (interface{}, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := cache.GetOrSet(ctx, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)

	_, err := cache.GetOrSet(ctx, "broken", time.Minute, func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	_, ok := cache.Get("broken")
	assert.False(t, ok)
}
