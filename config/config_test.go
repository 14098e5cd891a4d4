package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, DefaultKeepAlive, cfg.KeepAlive)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "udpx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keep_alive: 5s\nlog_level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.KeepAlive)
	require.Equal(t, "debug", cfg.LogLevel)
	// timeout wasn't set in the file, default should survive.
	require.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
