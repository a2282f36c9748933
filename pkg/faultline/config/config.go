// Package config loads faultline client configuration from TOML files
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// Config is the configuration surface of a faultline client.
type Config struct {
	// ServerName identifies the reporting host. Defaults to os.Hostname
	// when empty.
	ServerName string `toml:"server_name"`

	// IncludePaths are extra module path prefixes treated as application
	// code by the origin resolver.
	IncludePaths []string `toml:"include_paths"`

	// ExcludePaths are module path prefixes that never overwrite an
	// existing origin guess.
	ExcludePaths []string `toml:"exclude_paths"`

	Remote   RemoteConfig   `toml:"remote"`
	Throttle ThrottleConfig `toml:"throttle"`
}

// RemoteConfig holds delivery endpoints and credentials.
type RemoteConfig struct {
	// Endpoints are the remote collector URLs. Empty means deliver to the
	// local store.
	Endpoints []string `toml:"endpoints"`

	// Key is the shared authentication token sent with each delivery.
	Key string `toml:"key"`

	// TimeoutSeconds bounds each delivery attempt.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ThrottleConfig holds the throttle gate parameters. Zero for either value
// disables throttling.
type ThrottleConfig struct {
	WindowSeconds int `toml:"window_seconds"`
	MaxCount      int `toml:"max_count"`
}

// Default returns the defaults applied before file and environment values.
func Default() *Config {
	return &Config{
		Remote:   RemoteConfig{TimeoutSeconds: 5},
		Throttle: ThrottleConfig{WindowSeconds: 60, MaxCount: 10},
	}
}

// Load reads a TOML file at path, applies environment overrides and
// validates the result. An empty path yields defaults plus environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FAULTLINE_ENDPOINTS"); v != "" {
		cfg.Remote.Endpoints = splitList(v)
	}
	if v := os.Getenv("FAULTLINE_KEY"); v != "" {
		cfg.Remote.Key = v
	}
	if v := os.Getenv("FAULTLINE_SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}
	if v := os.Getenv("FAULTLINE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Remote.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("FAULTLINE_THROTTLE_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Throttle.WindowSeconds = n
		}
	}
	if v := os.Getenv("FAULTLINE_THROTTLE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Throttle.MaxCount = n
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("remote.timeout_seconds must be positive")
	}
	if len(c.Remote.Endpoints) > 0 && c.Remote.Key == "" {
		return fmt.Errorf("remote endpoints configured without an auth key")
	}
	for _, e := range c.Remote.Endpoints {
		if !strings.HasPrefix(e, "http://") && !strings.HasPrefix(e, "https://") {
			return fmt.Errorf("endpoint %q must be an http(s) URL", e)
		}
	}
	if c.Throttle.WindowSeconds < 0 || c.Throttle.MaxCount < 0 {
		return fmt.Errorf("throttle values must not be negative")
	}
	return nil
}

// ClientOptions converts the configuration into faultline client options.
func (c *Config) ClientOptions() []faultline.Option {
	opts := []faultline.Option{
		faultline.WithTimeout(time.Duration(c.Remote.TimeoutSeconds) * time.Second),
	}

	if len(c.Remote.Endpoints) > 0 {
		opts = append(opts,
			faultline.WithEndpoints(c.Remote.Endpoints...),
			faultline.WithKey(c.Remote.Key),
		)
	}
	if c.ServerName != "" {
		opts = append(opts, faultline.WithServerName(c.ServerName))
	}
	if c.Throttle.WindowSeconds > 0 && c.Throttle.MaxCount > 0 {
		opts = append(opts, faultline.WithThrottle(
			faultline.NewMemoryCounterStore(),
			time.Duration(c.Throttle.WindowSeconds)*time.Second,
			c.Throttle.MaxCount,
		))
	}
	if len(c.IncludePaths) > 0 {
		opts = append(opts, faultline.WithIncludePaths(c.IncludePaths...))
	}
	if len(c.ExcludePaths) > 0 {
		opts = append(opts, faultline.WithExcludePaths(c.ExcludePaths...))
	}

	return opts
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
