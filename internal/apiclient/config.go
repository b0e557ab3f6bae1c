package apiclient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultMaxRetries        = 3
	defaultBaseDelay         = time.Second
	defaultMaxJitter         = time.Second
	defaultCacheTTL          = 5 * time.Minute
	defaultCacheMaxEntries   = 100
	defaultRateMaxRequests   = 50
	defaultRateWindow        = time.Minute
	defaultSweepInterval     = 30 * time.Second
	defaultMaxResponseBytes  = 10 * 1024 * 1024
	defaultUserAgent         = "gymgate"
	headerRequestID          = "X-Request-ID"
	contentTypeJSON          = "application/json"
)

// Config configures a Client. Zero values fall back to documented defaults,
// so Config{BaseURL: ...} is a working configuration.
type Config struct {
	// BaseURL is the backend root, e.g. https://api.gym.example.
	BaseURL string

	// AuthToken, when set, is sent as a bearer token on every request.
	AuthToken string

	// Timeout bounds a single dispatch attempt. Default 30s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default 3; set negative to disable retries entirely.
	MaxRetries int

	// BaseDelay is the backoff base; the delay before retry n is
	// BaseDelay * 2^(n-1) plus jitter in [0, MaxJitter). Defaults 1s / 1s.
	BaseDelay time.Duration
	MaxJitter time.Duration

	// CacheTTL is the default TTL for cached GET responses. Default 5m.
	CacheTTL time.Duration

	// CacheMaxEntries bounds the cache; insertion-order eviction when full.
	// Default 100.
	CacheMaxEntries int

	// RateMaxRequests and RateWindow configure the per-key sliding window.
	// Defaults 50 requests per 60s.
	RateMaxRequests int
	RateWindow      time.Duration

	// SweepInterval is the period of the background cleanup of expired cache
	// entries and stale window timestamps. Default 30s.
	SweepInterval time.Duration

	// MaxResponseBytes caps how much of a response body is read. Default 10MB.
	MaxResponseBytes int64

	// Sanitize bounds mutating payloads. Zero fields use defaults.
	Sanitize SanitizeLimits

	// HTTPClient overrides the underlying transport; Timeout is ignored when
	// set. Intended primarily for tests.
	HTTPClient *http.Client

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Clock overrides wall-clock time for cache and limiter decisions.
	Clock func() time.Time

	// SecondLevel, when set, persists cached GET responses across runs.
	SecondLevel SecondLevelCache

	// Windows, when set, persists rate-limiter window state across runs.
	Windows WindowStore
}

func (cfg Config) withDefaults() Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	} else if cfg.MaxJitter == 0 {
		cfg.MaxJitter = defaultMaxJitter
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = defaultCacheMaxEntries
	}
	if cfg.RateMaxRequests <= 0 {
		cfg.RateMaxRequests = defaultRateMaxRequests
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = defaultRateWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	cfg.Sanitize = sanitizeLimitsWithDefaults(cfg.Sanitize)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}
