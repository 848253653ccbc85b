package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HWEXPLORER_CONFIG", filepath.Join(home, "missing.toml"))

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "hwexplorer", "hwexplorer.db"), c.Database.Path)
	require.Equal(t, ProviderDB, c.Provider.Mode)
	require.Equal(t, 32, c.Provider.CacheSize)
	require.Equal(t, "binaries", c.Runner.BinDir)
	require.Equal(t, 10*time.Second, c.Runner.Timeout)
	require.Equal(t, "info", c.Log.Level)
	require.Equal(t, "127.0.0.1:8765", c.HTTP.Addr)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[provider]
mode = "mock"
cache_size = 4

[runner]
bin_dir = "/opt/hello"
timeout = "250ms"
`), 0o644))
	t.Setenv("HWEXPLORER_CONFIG", path)
	t.Setenv("HWEXPLORER_HTTP_ADDR", ":9000")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderMock, c.Provider.Mode)
	require.Equal(t, 4, c.Provider.CacheSize)
	require.Equal(t, "/opt/hello", c.Runner.BinDir)
	require.Equal(t, 250*time.Millisecond, c.Runner.Timeout)
	require.Equal(t, ":9000", c.HTTP.Addr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider]\nmode = \"cloud\"\n"), 0o644))
	t.Setenv("HWEXPLORER_CONFIG", path)

	_, err := Load()
	require.ErrorContains(t, err, "provider.mode")

	require.NoError(t, os.WriteFile(path, []byte("not = [toml"), 0o644))
	_, err = Load()
	require.ErrorContains(t, err, "read config")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HWEXPLORER_CONFIG", filepath.Join(dir, "nested", "config.toml"))

	want := Config{
		Database: DatabaseConfig{Path: filepath.Join(dir, "x.db")},
		Provider: ProviderConfig{Mode: ProviderMock, CacheSize: 8},
		Runner:   RunnerConfig{BinDir: "bin", Timeout: 3 * time.Second},
		Log:      LogConfig{Level: "debug", Format: "json", File: filepath.Join(dir, "x.log"), Journal: true},
		HTTP:     HTTPConfig{Addr: "127.0.0.1:1"},
	}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}
