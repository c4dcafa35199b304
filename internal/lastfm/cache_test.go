package lastfm

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	cache := newLRUCache(3)
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("d", 4)
	require.Equal(t, 3, cache.Len())

	_, ok = cache.Get("b")
	require.False(t, ok)
	for _, key := range []string{"a", "c", "d"} {
		_, ok := cache.Get(key)
		require.True(t, ok, "expected %q to survive", key)
	}
}

func TestLRUCacheUpdateExisting(t *testing.T) {
	cache := newLRUCache(2)
	cache.Put("a", 1)
	cache.Put("a", 2)
	require.Equal(t, 1, cache.Len())

	value, ok := cache.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, value)
}

func TestLRUCacheCapacityBound(t *testing.T) {
	cache := newLRUCache(512)
	for i := 0; i < 2000; i++ {
		cache.Put("key-"+strconv.Itoa(i), i)
	}
	require.Equal(t, 512, cache.Len())

	// Only the most recent keys remain.
	_, ok := cache.Get("key-0")
	require.False(t, ok)
	_, ok = cache.Get("key-1999")
	require.True(t, ok)
}
