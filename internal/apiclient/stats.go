package apiclient

import "sync/atomic"

// Stats is a point-in-time snapshot of client activity, exposed for the
// stats command and the diagnostics server. Requests counts logical calls
// after validation, including calls served from cache and calls rejected
// by the rate limiter; network attempts are visible through Retries.
type Stats struct {
	Requests        uint64         `json:"requests"`
	CacheHits       uint64         `json:"cache_hits"`
	CacheMisses     uint64         `json:"cache_misses"`
	Retries         uint64         `json:"retries"`
	RateLimited     uint64         `json:"rate_limited"`
	Failures        uint64         `json:"failures"`
	CacheEntries    int            `json:"cache_entries"`
	WindowOccupancy map[string]int `json:"window_occupancy,omitempty"`
}

// counters holds the atomic totals behind Stats.
type counters struct {
	requests    atomic.Uint64
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	retries     atomic.Uint64
	rateLimited atomic.Uint64
	failures    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Requests:    c.requests.Load(),
		CacheHits:   c.cacheHits.Load(),
		CacheMisses: c.cacheMisses.Load(),
		Retries:     c.retries.Load(),
		RateLimited: c.rateLimited.Load(),
		Failures:    c.failures.Load(),
	}
}
