package apiclient

import (
	"sync"
	"time"
)

// slidingLimiter caps request volume per caller key over a trailing window.
// A request is permitted only by recording its timestamp; over-limit requests
// are rejected outright, never queued. Timestamps older than the window are
// purged lazily on access and by Sweep.
type slidingLimiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	maxRequests int
	window      time.Duration
	clock       func() time.Time
}

func newSlidingLimiter(maxRequests int, window time.Duration, clock func() time.Time) *slidingLimiter {
	if maxRequests <= 0 {
		maxRequests = defaultRateMaxRequests
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &slidingLimiter{
		windows:     make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		clock:       clock,
	}
}

// Allow records one request for key if the trailing window has room.
// When rejected it returns how long until the oldest in-window timestamp
// rolls out.
func (l *slidingLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.purgeLocked(key, now)

	if len(recent) >= l.maxRequests {
		retryAfter := recent[0].Add(l.window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	l.windows[key] = append(recent, now)
	return true, 0
}

// Sweep drops expired timestamps for every key and deletes empty windows.
// It returns the number of timestamps removed.
func (l *slidingLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, stamps := range l.windows {
		recent := l.purgeLocked(key, now)
		removed += len(stamps) - len(recent)
		if len(recent) == 0 {
			delete(l.windows, key)
		}
	}
	return removed
}

// Occupancy reports the in-window request count per key.
func (l *slidingLimiter) Occupancy() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	occupancy := make(map[string]int, len(l.windows))
	for key := range l.windows {
		recent := l.purgeLocked(key, now)
		if len(recent) > 0 {
			occupancy[key] = len(recent)
		} else {
			delete(l.windows, key)
		}
	}
	return occupancy
}

// Snapshot copies the current window state, for persistence across runs.
func (l *slidingLimiter) Snapshot() map[string][]time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	snapshot := make(map[string][]time.Time, len(l.windows))
	for key := range l.windows {
		recent := l.purgeLocked(key, now)
		if len(recent) == 0 {
			continue
		}
		stamps := make([]time.Time, len(recent))
		copy(stamps, recent)
		snapshot[key] = stamps
	}
	return snapshot
}

// Restore seeds window state from a snapshot, discarding anything already
// outside the trailing window.
func (l *slidingLimiter) Restore(snapshot map[string][]time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, stamps := range snapshot {
		var recent []time.Time
		for _, ts := range stamps {
			if now.Sub(ts) < l.window {
				recent = append(recent, ts)
			}
		}
		if len(recent) > 0 {
			l.windows[key] = recent
		}
	}
}

// Reset drops all window state.
func (l *slidingLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string][]time.Time)
}

// purgeLocked trims timestamps that have left the trailing window and stores
// the trimmed slice. Caller must hold l.mu.
func (l *slidingLimiter) purgeLocked(key string, now time.Time) []time.Time {
	stamps := l.windows[key]
	cut := 0
	for cut < len(stamps) && now.Sub(stamps[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		stamps = stamps[cut:]
		if len(stamps) == 0 {
			delete(l.windows, key)
			return nil
		}
		l.windows[key] = stamps
	}
	return stamps
}

func (l *slidingLimiter) now() time.Time {
	if l.clock != nil {
		return l.clock()
	}
	return time.Now().UTC()
}
