package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileCacheRevisionOrdering(t *testing.T) {
	cache, err := NewProfileCache(4)
	require.NoError(t, err)

	assert.True(t, cache.Store("u1", 2, ProfileSummary{UserID: "u1", TotalXP: 20, Today: "2024-01-01"}))
	assert.False(t, cache.Store("u1", 1, ProfileSummary{UserID: "u1", TotalXP: 10, Today: "2024-01-01"}))

	got, ok := cache.Get("u1", "2024-01-01")
	require.True(t, ok)
	assert.Equal(t, int64(20), got.TotalXP)

	assert.True(t, cache.Store("u1", 2, ProfileSummary{UserID: "u1", TotalXP: 20, Today: "2024-01-02"}))
	_, ok = cache.Get("u1", "2024-01-01")
	assert.False(t, ok)
}

func TestProfileCacheDropsOtherDays(t *testing.T) {
	cache, err := NewProfileCache(4)
	require.NoError(t, err)

	cache.Store("u1", 1, ProfileSummary{Today: "2024-01-01"})
	_, ok := cache.Get("u1", "2024-01-02")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestProfileCacheEvicts(t *testing.T) {
	cache, err := NewProfileCache(2)
	require.NoError(t, err)

	cache.Store("a", 1, ProfileSummary{Today: "2024-01-01"})
	cache.Store("b", 1, ProfileSummary{Today: "2024-01-01"})
	cache.Store("c", 1, ProfileSummary{Today: "2024-01-01"})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a", "2024-01-01")
	assert.False(t, ok)
}

func TestNewProfileCacheInvalidSize(t *testing.T) {
	_, err := NewProfileCache(0)
	assert.Error(t, err)
}
