package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration.
// Values are merged in three layers: built-in defaults, a YAML config
// file, and GYMGATE_* environment variables.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Sanitize  SanitizeConfig  `mapstructure:"sanitize"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig describes the upstream gym backend.
type APIConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	AuthToken        string        `mapstructure:"auth_token"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
}

// CacheConfig controls the in-memory response cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig controls the client-side sliding window limiter.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// RetryConfig controls transient-failure retries.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxJitter  time.Duration `mapstructure:"max_jitter"`
}

// SanitizeConfig bounds accepted request payloads.
type SanitizeConfig struct {
	MaxTopLevelKeys int `mapstructure:"max_top_level_keys"`
	MaxObjectKeys   int `mapstructure:"max_object_keys"`
	MaxArrayLen     int `mapstructure:"max_array_len"`
	MaxDepth        int `mapstructure:"max_depth"`
	MaxStringLen    int `mapstructure:"max_string_len"`
}

// StoreConfig contains database configuration for libsql/Turso. When
// neither Path nor URL is set the persistent layer stays disabled.
type StoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ServerConfig contains the diagnostics HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ThrottleRPS     float64       `mapstructure:"throttle_rps"`
	ThrottleBurst   int           `mapstructure:"throttle_burst"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format selects console or json output.
	Format string `mapstructure:"format"`
}

// Validate checks invariants that viper defaults cannot guarantee, such
// as values overridden to nonsense via environment variables.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required (set GYMGATE_API_BASE_URL or the config file)")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("ratelimit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
