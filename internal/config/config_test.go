package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "https://example.social"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"unknown variant", func(c *Config) { c.Column.Variant = "antenna" }},
		{"zero fetch limit", func(c *Config) { c.Column.FetchLimit = 0 }},
		{"oversized fetch limit", func(c *Config) { c.Column.FetchLimit = 500 }},
		{"zero max items", func(c *Config) { c.Column.MaxItems = 0 }},
		{"cache enabled without path", func(c *Config) { c.Cache.Path = "" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Server.BaseURL = "https://example.social"
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://example.social
  token: abc123
column:
  variant: local
  fetch_limit: 20
logging:
  level: debug
`), 0o644))

	l := NewLoader()
	l.SetConfigFile(path)
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, "https://example.social", cfg.Server.BaseURL)
	require.Equal(t, "local", cfg.Column.Variant)
	require.Equal(t, 20, cfg.Column.FetchLimit)
	require.Equal(t, 500, cfg.Column.MaxItems, "unset keys keep defaults")
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NOTEFEED_SERVER_BASE_URL", "https://env.social")
	t.Setenv("NOTEFEED_COLUMN_VARIANT", "global")

	l := NewLoader()
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, "https://env.social", cfg.Server.BaseURL)
	require.Equal(t, "global", cfg.Column.Variant)
}

func TestExplicitMissingFileErrors(t *testing.T) {
	l := NewLoader()
	l.SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := l.Load()
	require.Error(t, err)
}
