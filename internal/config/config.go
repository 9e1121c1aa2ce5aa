// Package config handles notefeed configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for the notefeed tools.
type Config struct {
	// Server is the server connection.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Column configures the feed column to open.
	Column ColumnConfig `yaml:"column" mapstructure:"column"`

	// Cache configures the cold-start cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig identifies the server and credentials.
type ServerConfig struct {
	// BaseURL is the server origin, e.g. https://example.social.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Token is the API token.
	Token string `yaml:"token" mapstructure:"token"`
}

// ColumnConfig configures the feed column.
type ColumnConfig struct {
	// Variant is the feed variant (home, local, social, global).
	Variant string `yaml:"variant" mapstructure:"variant"`

	// FetchLimit is the page size for fetches.
	FetchLimit int `yaml:"fetch_limit" mapstructure:"fetch_limit"`

	// MaxItems caps the in-memory timeline.
	MaxItems int `yaml:"max_items" mapstructure:"max_items"`

	// FlushIntervalMs is the live-arrival coalescing tick in milliseconds.
	FlushIntervalMs int `yaml:"flush_interval_ms" mapstructure:"flush_interval_ms"`
}

// FlushInterval returns the coalescing tick as a duration.
func (c ColumnConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// CacheConfig configures the sqlite cold-start cache.
type CacheConfig struct {
	// Enabled toggles the cache entirely.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the sqlite database file path.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Column: ColumnConfig{
			Variant:         "home",
			FetchLimit:      30,
			MaxItems:        500,
			FlushIntervalMs: 16,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "feedcache.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "notefeed")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "notefeed")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	switch c.Column.Variant {
	case "home", "local", "social", "global":
	default:
		return fmt.Errorf("unknown column.variant %q", c.Column.Variant)
	}
	if c.Column.FetchLimit <= 0 || c.Column.FetchLimit > 100 {
		return fmt.Errorf("column.fetch_limit must be in 1..100")
	}
	if c.Column.MaxItems <= 0 {
		return fmt.Errorf("column.max_items must be positive")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when cache is enabled")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
