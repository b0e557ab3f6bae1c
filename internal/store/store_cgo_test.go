//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gymgate/gymgate/internal/apiclient"
	"github.com/gymgate/gymgate/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenMemoryStore(t *testing.T) {
	s := openTestStore(t)
	require.NotNil(t, s.DB)
}

func TestCachedResponseRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	resp := &apiclient.CachedResponse{
		Body:        []byte(`[{"id":1}]`),
		ContentType: "application/json",
		StoredAt:    now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
	require.NoError(t, s.SetCached(ctx, "GET /api/usuarios", resp))

	got, err := s.GetCached(ctx, "GET /api/usuarios")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, resp.Body, got.Body)
	require.Equal(t, "application/json", got.ContentType)
	require.True(t, got.ExpiresAt.Equal(resp.ExpiresAt))
}

func TestGetCachedTreatsExpiredAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, s.SetCached(ctx, "GET /api/clases", &apiclient.CachedResponse{
		Body:      []byte(`[]`),
		StoredAt:  now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	}))

	got, err := s.GetCached(ctx, "GET /api/clases")
	require.NoError(t, err)
	require.Nil(t, got)

	pruned, err := s.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

func TestDeleteAndClearCached(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	for _, key := range []string{"GET /api/usuarios", "GET /api/pagos"} {
		require.NoError(t, s.SetCached(ctx, key, &apiclient.CachedResponse{
			Body:      []byte(`[]`),
			StoredAt:  now,
			ExpiresAt: now.Add(time.Minute),
		}))
	}

	require.NoError(t, s.DeleteCached(ctx, "GET /api/usuarios"))
	got, err := s.GetCached(ctx, "GET /api/usuarios")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, s.ClearCached(ctx))
	got, err = s.GetCached(ctx, "GET /api/pagos")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWindowsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	in := map[string][]time.Time{
		"usuarios": {now.Add(-30 * time.Second), now.Add(-10 * time.Second)},
		"pagos":    {now},
	}
	require.NoError(t, s.SaveWindows(ctx, in))

	out, err := s.LoadWindows(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out["usuarios"], 2)
	require.True(t, out["usuarios"][0].Equal(in["usuarios"][0]))
	require.True(t, out["pagos"][0].Equal(now))

	// A save replaces, not appends.
	require.NoError(t, s.SaveWindows(ctx, map[string][]time.Time{"clases": {now}}))
	out, err = s.LoadWindows(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Contains(t, out, "clases")
}
