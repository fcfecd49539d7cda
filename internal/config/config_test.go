package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "openhealth", cfg.Database.Name)
	require.Equal(t, 2, cfg.Anthropic.MaxRetries)
	require.Equal(t, 30*time.Second, cfg.Anthropic.RequestTimeout)
	require.Equal(t, 60, cfg.RateLimit.PerMinute)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: "9090"
database:
  name: openhealth_test
anthropic:
  model: claude-haiku-4-5-20251001
  max_retries: 5
auth:
  jwt_secret: testsecret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "openhealth_test", cfg.Database.Name)
	require.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	require.Equal(t, 5, cfg.Anthropic.MaxRetries)
	require.Equal(t, "testsecret", cfg.Auth.JWTSecret)
	// untouched keys keep defaults
	require.Equal(t, 4000, cfg.Anthropic.MaxTokens)
}
