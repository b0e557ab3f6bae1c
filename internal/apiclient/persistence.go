package apiclient

import (
	"context"
	"time"
)

// CachedResponse is a persisted GET response.
type CachedResponse struct {
	Body        []byte
	ContentType string
	StoredAt    time.Time
	ExpiresAt   time.Time
}

// SecondLevelCache persists cached responses beyond the life of one process.
// The in-memory cache stays authoritative within a process; lookups fall
// through to this layer only on a miss. Implementations must treat expired
// entries as absent.
type SecondLevelCache interface {
	GetCached(ctx context.Context, key string) (*CachedResponse, error)
	SetCached(ctx context.Context, key string, resp *CachedResponse) error
	DeleteCached(ctx context.Context, key string) error
	ClearCached(ctx context.Context) error
}

// WindowStore persists sliding-window rate-limiter state across runs, so
// short-lived CLI invocations still respect the trailing window.
type WindowStore interface {
	LoadWindows(ctx context.Context) (map[string][]time.Time, error)
	SaveWindows(ctx context.Context, windows map[string][]time.Time) error
}
