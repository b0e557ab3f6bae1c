package apiclient

import (
	"sync"
	"time"
)

// cacheEntry holds one cached GET response. An entry is valid iff
// now-storedAt <= ttl; once past that it is indistinguishable from absent.
type cacheEntry struct {
	body        []byte
	contentType string
	storedAt    time.Time
	ttl         time.Duration
}

// responseCache is a capacity-bounded TTL cache for idempotent reads.
// Eviction is insertion-order, not access-order: when full, the entry that
// was inserted earliest is dropped. Expired entries are removed lazily on
// access and by Sweep.
type responseCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string
	maxEntries int
	defaultTTL time.Duration
	clock      func() time.Time
}

func newResponseCache(maxEntries int, defaultTTL time.Duration, clock func() time.Time) *responseCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}
	return &responseCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		clock:      clock,
	}
}

// Get returns the cached body and content type for key, evicting the entry
// first if it has expired.
func (c *responseCache) Get(key string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, "", false
	}

	if c.now().Sub(entry.storedAt) > entry.ttl {
		c.removeLocked(key)
		return nil, "", false
	}

	return entry.body, entry.contentType, true
}

// Set stores a response under key. A ttl <= 0 uses the default TTL.
// Overwriting an existing key keeps its original insertion position.
func (c *responseCache) Set(key string, body []byte, contentType string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.body = body
		entry.contentType = contentType
		entry.storedAt = c.now()
		entry.ttl = ttl
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[key] = &cacheEntry{
		body:        body,
		contentType: contentType,
		storedAt:    c.now(),
		ttl:         ttl,
	}
	c.order = append(c.order, key)
}

// Invalidate removes a single entry.
func (c *responseCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear removes all entries.
func (c *responseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

// Len returns the number of live entries without expiring anything.
func (c *responseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts all expired entries and returns how many were removed.
func (c *responseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > entry.ttl {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

func (c *responseCache) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *responseCache) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now().UTC()
}
