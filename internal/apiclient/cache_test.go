package apiclient

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheTTLBoundary(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newResponseCache(10, 5*time.Minute, func() time.Time { return now })

	cache.Set("GET /api/usuarios", []byte(`[]`), contentTypeJSON, 5*time.Minute)

	// One millisecond before expiry the entry is still served.
	now = now.Add(5*time.Minute - time.Millisecond)
	body, _, ok := cache.Get("GET /api/usuarios")
	require.True(t, ok)
	require.Equal(t, []byte(`[]`), body)

	// One millisecond past expiry it is indistinguishable from absent.
	now = now.Add(2 * time.Millisecond)
	_, _, ok = cache.Get("GET /api/usuarios")
	require.False(t, ok)
	require.Equal(t, 0, cache.Len(), "expired entry must be evicted on access")
}

func TestCacheInsertionOrderEviction(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newResponseCache(3, time.Hour, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("GET /api/r%d", i), []byte{byte(i)}, "", 0)
	}
	require.Equal(t, 3, cache.Len())

	// Inserting a fourth entry evicts the earliest-inserted one.
	cache.Set("GET /api/r3", []byte{3}, "", 0)
	require.Equal(t, 3, cache.Len())

	_, _, ok := cache.Get("GET /api/r0")
	require.False(t, ok)
	for i := 1; i <= 3; i++ {
		_, _, ok := cache.Get(fmt.Sprintf("GET /api/r%d", i))
		require.True(t, ok)
	}
}

func TestCacheOverwriteKeepsInsertionPosition(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newResponseCache(2, time.Hour, func() time.Time { return now })

	cache.Set("GET /api/a", []byte("a1"), "", 0)
	cache.Set("GET /api/b", []byte("b1"), "", 0)

	// Overwriting does not make the entry "new" for eviction purposes.
	cache.Set("GET /api/a", []byte("a2"), "", 0)
	cache.Set("GET /api/c", []byte("c1"), "", 0)

	_, _, ok := cache.Get("GET /api/a")
	require.False(t, ok, "oldest-inserted entry evicted even after overwrite")

	body, _, ok := cache.Get("GET /api/b")
	require.True(t, ok)
	require.Equal(t, []byte("b1"), body)
}

func TestCacheSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newResponseCache(10, time.Hour, func() time.Time { return now })

	cache.Set("GET /api/short", []byte("s"), "", time.Minute)
	cache.Set("GET /api/long", []byte("l"), "", time.Hour)

	now = now.Add(2 * time.Minute)
	require.Equal(t, 1, cache.Sweep())
	require.Equal(t, 1, cache.Len())

	_, _, ok := cache.Get("GET /api/long")
	require.True(t, ok)
}

func TestCacheInvalidateAndClear(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newResponseCache(10, time.Hour, func() time.Time { return now })

	cache.Set("GET /api/a", []byte("a"), "", 0)
	cache.Set("GET /api/b", []byte("b"), "", 0)

	cache.Invalidate("GET /api/a")
	_, _, ok := cache.Get("GET /api/a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	cache.Clear()
	require.Equal(t, 0, cache.Len())

	// Eviction order stays consistent after invalidation.
	cache.Set("GET /api/c", []byte("c"), "", 0)
	require.Equal(t, 1, cache.Len())
}
