// Package apiclient is the sole network gateway to the gym-management
// backend. It wraps outbound HTTP calls with three cooperating policies:
// automatic retry with exponential backoff and jitter for transient
// failures, a capacity-bounded TTL cache for idempotent reads, and a
// per-key sliding-window rate limiter that rejects rather than queues.
//
// Clients are explicitly constructed and disposed; there is no package
// state, so independent instances can coexist in tests.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is the resilient API client. All methods are safe for concurrent
// use. Two concurrent Gets for the same path before either completes will
// both miss the cache and both dispatch; requests are not coalesced.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *responseCache
	limiter    *slidingLimiter
	stats      counters
	logger     *zap.Logger

	closeOnce sync.Once
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New constructs a Client from cfg, seeds rate-limiter state from the
// configured WindowStore when present, and starts the periodic sweep.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", cfg.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: unsupported base URL scheme %q", parsed.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		cfg:        cfg,
		httpClient: hc,
		cache:      newResponseCache(cfg.CacheMaxEntries, cfg.CacheTTL, cfg.Clock),
		limiter:    newSlidingLimiter(cfg.RateMaxRequests, cfg.RateWindow, cfg.Clock),
		logger:     cfg.Logger,
		sweepStop:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}

	if cfg.Windows != nil {
		windows, err := cfg.Windows.LoadWindows(context.Background())
		if err != nil {
			c.logger.Warn("could not load persisted rate windows", zap.Error(err))
		} else if len(windows) > 0 {
			c.limiter.Restore(windows)
		}
	}

	go c.sweepLoop()

	return c, nil
}

// Close stops the background sweep and persists rate-limiter state to the
// configured WindowStore. It is safe to call more than once.
func (c *Client) Close() error {
	var saveErr error
	c.closeOnce.Do(func() {
		close(c.sweepStop)
		<-c.sweepDone

		if c.cfg.Windows != nil {
			if err := c.cfg.Windows.SaveWindows(context.Background(), c.limiter.Snapshot()); err != nil {
				saveErr = fmt.Errorf("apiclient: save rate windows: %w", err)
			}
		}
	})
	return saveErr
}

// Get fetches path, serving a live cache entry without any network call or
// rate-limit slot when one exists. A fresh result is cached under the
// default TTL unless overridden per call.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	c.stats.requests.Add(1)
	options := applyRequestOptions(path, opts)
	key := cacheKey(http.MethodGet, path)

	if !options.skipCache {
		if body, _, ok := c.cache.Get(key); ok {
			c.stats.cacheHits.Add(1)
			return body, nil
		}
		if body, ok := c.secondLevelGet(ctx, key, options.ttl); ok {
			c.stats.cacheHits.Add(1)
			return body, nil
		}
		c.stats.cacheMisses.Add(1)
	}

	if err := c.allow(options.rateKey); err != nil {
		return nil, err
	}

	body, contentType, err := c.dispatch(ctx, http.MethodGet, path, nil, "", "")
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, body, contentType, options.ttl)
	c.secondLevelSet(ctx, key, body, contentType, options.ttl)

	return body, nil
}

// GetJSON fetches path and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any, opts ...RequestOption) error {
	body, err := c.Get(ctx, path, opts...)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

// Post sends a sanitized JSON payload. Mutations always hit the network and
// never touch the cache; callers invalidate stale entries explicitly.
func (c *Client) Post(ctx context.Context, path string, payload any, opts ...RequestOption) ([]byte, error) {
	return c.mutate(ctx, http.MethodPost, path, payload, opts)
}

// Put sends a sanitized JSON payload with PUT semantics.
func (c *Client) Put(ctx context.Context, path string, payload any, opts ...RequestOption) ([]byte, error) {
	return c.mutate(ctx, http.MethodPut, path, payload, opts)
}

// Patch sends a sanitized JSON payload with PATCH semantics.
func (c *Client) Patch(ctx context.Context, path string, payload any, opts ...RequestOption) ([]byte, error) {
	return c.mutate(ctx, http.MethodPatch, path, payload, opts)
}

// Delete issues a DELETE. A nil payload sends no body.
func (c *Client) Delete(ctx context.Context, path string, payload any, opts ...RequestOption) ([]byte, error) {
	return c.mutate(ctx, http.MethodDelete, path, payload, opts)
}

func (c *Client) mutate(ctx context.Context, method, path string, payload any, opts []RequestOption) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	c.stats.requests.Add(1)
	options := applyRequestOptions(path, opts)

	var body []byte
	var contentType string
	if payload != nil {
		sanitized, err := sanitizePayload(payload, c.cfg.Sanitize)
		if err != nil {
			return nil, err
		}
		body, err = json.Marshal(sanitized)
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("encode payload: %v", err)}
		}
		contentType = contentTypeJSON
	}

	if err := c.allow(options.rateKey); err != nil {
		return nil, err
	}

	respBody, _, err := c.dispatch(ctx, method, path, body, contentType, "")
	return respBody, err
}

// Upload sends a file as a multipart form. File contents are passed through
// unsanitized; only the path and field names are validated.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader, opts ...RequestOption) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if field == "" || filename == "" {
		return nil, &ValidationError{Reason: "upload field and filename are required"}
	}
	c.stats.requests.Add(1)
	options := applyRequestOptions(path, opts)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("apiclient: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("apiclient: read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("apiclient: finalize form: %w", err)
	}

	if err := c.allow(options.rateKey); err != nil {
		return nil, err
	}

	respBody, _, err := c.dispatch(ctx, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType(), "")
	return respBody, err
}

// Download fetches a binary blob (report, document). Blobs are never cached.
func (c *Client) Download(ctx context.Context, path string, opts ...RequestOption) ([]byte, string, error) {
	if err := validatePath(path); err != nil {
		return nil, "", err
	}
	c.stats.requests.Add(1)
	options := applyRequestOptions(path, opts)

	if err := c.allow(options.rateKey); err != nil {
		return nil, "", err
	}

	return c.dispatch(ctx, http.MethodGet, path, nil, "", "*/*")
}

// Invalidate drops the cached GET entry for path. Accepts either a bare
// path or a full "METHOD /path" cache key.
func (c *Client) Invalidate(path string) {
	key := path
	if len(path) > 0 && path[0] == '/' {
		key = cacheKey(http.MethodGet, path)
	}
	c.cache.Invalidate(key)
	if c.cfg.SecondLevel != nil {
		if err := c.cfg.SecondLevel.DeleteCached(context.Background(), key); err != nil {
			c.logger.Warn("second-level invalidate failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Clear drops every cached entry.
func (c *Client) Clear() {
	c.cache.Clear()
	if c.cfg.SecondLevel != nil {
		if err := c.cfg.SecondLevel.ClearCached(context.Background()); err != nil {
			c.logger.Warn("second-level clear failed", zap.Error(err))
		}
	}
}

// Stats returns a snapshot of counters plus live cache size and per-key
// window occupancy.
func (c *Client) Stats() Stats {
	stats := c.stats.snapshot()
	stats.CacheEntries = c.cache.Len()
	stats.WindowOccupancy = c.limiter.Occupancy()
	return stats
}

// SweepNow synchronously evicts expired cache entries and stale window
// timestamps, exactly as the periodic sweep does. It reports how many
// of each were removed.
func (c *Client) SweepNow() (expiredEntries, staleSlots int) {
	expired := c.cache.Sweep()
	stale := c.limiter.Sweep()
	if expired > 0 || stale > 0 {
		c.logger.Debug("sweep completed",
			zap.Int("cache_expired", expired),
			zap.Int("window_stale", stale))
	}
	return expired, stale
}

// allow consults the sliding-window limiter, charging one slot. Called once
// per logical call, before the first dispatch; cache hits never reach here.
func (c *Client) allow(key string) error {
	ok, retryAfter := c.limiter.Allow(key)
	if !ok {
		c.stats.rateLimited.Add(1)
		return &RateLimitError{Key: key, RetryAfter: retryAfter}
	}
	return nil
}

func (c *Client) secondLevelGet(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if c.cfg.SecondLevel == nil {
		return nil, false
	}

	cached, err := c.cfg.SecondLevel.GetCached(ctx, key)
	if err != nil {
		c.logger.Warn("second-level lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if cached == nil {
		return nil, false
	}

	// Re-warm the in-memory cache for the entry's remaining lifetime.
	remaining := time.Until(cached.ExpiresAt)
	if c.cfg.Clock != nil {
		remaining = cached.ExpiresAt.Sub(c.cfg.Clock())
	}
	if remaining <= 0 {
		return nil, false
	}
	if ttl > 0 && ttl < remaining {
		remaining = ttl
	}
	c.cache.Set(key, cached.Body, cached.ContentType, remaining)

	return cached.Body, true
}

func (c *Client) secondLevelSet(ctx context.Context, key string, body []byte, contentType string, ttl time.Duration) {
	if c.cfg.SecondLevel == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.cfg.CacheTTL
	}

	now := time.Now().UTC()
	if c.cfg.Clock != nil {
		now = c.cfg.Clock()
	}

	err := c.cfg.SecondLevel.SetCached(ctx, key, &CachedResponse{
		Body:        body,
		ContentType: contentType,
		StoredAt:    now,
		ExpiresAt:   now.Add(ttl),
	})
	if err != nil {
		c.logger.Warn("second-level store failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Client) sweepLoop() {
	defer close(c.sweepDone)

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.sweepStop:
			return
		case <-ticker.C:
			c.SweepNow()
		}
	}
}
