package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 2000, cfg.Retrieval.MaxContextChars)
	require.Equal(t, 50, cfg.Session.Window)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 2.1.0
server:
  port: 9090
retrieval:
  top_k: 3
  timeout: 2s
agents:
  timeout: 10s
`))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 3, cfg.Retrieval.TopK)
	require.Equal(t, 2*time.Second, cfg.Retrieval.Timeout.Std())
	require.Equal(t, 10*time.Second, cfg.Agents.Timeout.Std())
	require.NotEmpty(t, cfg.Anthropic.Model, "unset fields should keep defaults")
}

func TestParseRejectsBadVersion(t *testing.T) {
	_, err := Parse([]byte("version: not-a-version\n"))
	require.Error(t, err)
}

func TestParseRejectsBadPort(t *testing.T) {
	_, err := Parse([]byte("server:\n  port: 70000\n"))
	require.Error(t, err)
}

func TestParseRejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte("retrieval:\n  timeout: fast\n"))
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	cfg, err := Parse([]byte("anthropic:\n  api_key: file-key\n"))
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.Anthropic.APIKey)
}

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	l, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.Port)
}

func TestReloadKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600))

	l, err := NewLoader(path)
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: broken\n"), 0o600))
	cfg, err := l.Reload()
	require.Error(t, err)
	require.Equal(t, 9999, cfg.Server.Port, "reload failure should keep last good config")

	last, ok := l.Last()
	require.True(t, ok)
	require.Equal(t, 9999, last.Server.Port)
}
