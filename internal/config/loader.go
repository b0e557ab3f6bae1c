// Package config provides centralized configuration management for
// gymgate. Values merge in three layers: built-in defaults, an optional
// YAML config file, and GYMGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// GYMGATE_API_BASE_URL maps to api.base_url.
const EnvPrefix = "GYMGATE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.max_response_bytes", 10<<20)

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.sweep_interval", "30s")

	v.SetDefault("ratelimit.max_requests", 50)
	v.SetDefault("ratelimit.window", "60s")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_jitter", "1s")

	v.SetDefault("sanitize.max_top_level_keys", 100)
	v.SetDefault("sanitize.max_object_keys", 256)
	v.SetDefault("sanitize.max_array_len", 1000)
	v.SetDefault("sanitize.max_depth", 8)
	v.SetDefault("sanitize.max_string_len", 64<<10)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.throttle_rps", 20.0)
	v.SetDefault("server.throttle_burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from defaults, an optional config file and
// the environment. An empty path triggers discovery of config.yaml in
// the working directory and the user config directory; a missing file
// is not an error, an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfigDir returns the per-user config directory for gymgate.
func DefaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "gymgate")
}

// DefaultConfigPath returns the path `gymgate config init` writes to.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the default location of the libsql database.
func DefaultStorePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return "./gymgate.db"
	}
	return filepath.Join(base, "gymgate", "gymgate.db")
}

// WriteDefault writes a fully-commented starter config file to path,
// creating parent directories. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	defaults := map[string]any{
		"api": map[string]any{
			"base_url":           "http://localhost:3000",
			"auth_token":         "",
			"timeout":            "30s",
			"max_response_bytes": 10 << 20,
		},
		"cache": map[string]any{
			"ttl":            "5m",
			"max_entries":    100,
			"sweep_interval": "30s",
		},
		"ratelimit": map[string]any{
			"max_requests": 50,
			"window":       "60s",
		},
		"retry": map[string]any{
			"max_retries": 3,
			"base_delay":  "1s",
			"max_jitter":  "1s",
		},
		"store": map[string]any{
			"enabled": false,
			"path":    "",
			"url":     "",
		},
		"server": map[string]any{
			"host": "127.0.0.1",
			"port": 8787,
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "console",
		},
	}

	out, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	header := "# gymgate configuration. Every key can be overridden with a\n# " + EnvPrefix + "_* environment variable, e.g. " + EnvPrefix + "_API_BASE_URL.\n"
	if err := os.WriteFile(path, append([]byte(header), out...), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ClientTimeout returns the API timeout with a floor so that a zeroed
// config file cannot disable request deadlines entirely.
func (c *Config) ClientTimeout() time.Duration {
	if c.API.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.API.Timeout
}
