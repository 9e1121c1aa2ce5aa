package tailtui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notefeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://file.example
  token: filetoken
column:
  variant: local
`), 0o644))

	cfg, err := loadConfig(Options{
		ConfigFile: path,
		Server:     "https://flag.example",
		Variant:    "global",
	})
	require.NoError(t, err)
	require.Equal(t, "https://flag.example", cfg.Server.BaseURL)
	require.Equal(t, "filetoken", cfg.Server.Token, "file value survives when no flag is set")
	require.Equal(t, "global", cfg.Column.Variant)
}

func TestLoadConfigRejectsInvalidVariant(t *testing.T) {
	_, err := loadConfig(Options{Server: "https://x.example", Variant: "antenna"})
	require.Error(t, err)
}
