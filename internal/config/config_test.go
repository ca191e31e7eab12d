package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests here set environment variables, so they do not run in parallel.

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".", cfg.Server.Root)
	assert.Equal(t, "server", cfg.Server.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reponav.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`server:
  root: /srv/code
  patterns: ["*.cs", "*.go"]
client:
  timeout: 5s
  author: Jim
log:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/code", cfg.Server.Root)
	assert.Equal(t, []string{"*.cs", "*.go"}, cfg.Server.Patterns)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "Jim", cfg.Client.Author)
	assert.Equal(t, "json", cfg.Log.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, "127.0.0.1:8050", cfg.Server.Addr)
	assert.Equal(t, 1024, cfg.Server.CacheSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REPONAV_AUTHOR=\"unterminated\n"), 0o644))
	t.Chdir(dir)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env")
}

func TestLoadWithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reponav.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  root: /from/file\n"), 0o644))

	t.Setenv("REPONAV_ROOT", "/from/env")
	t.Setenv("REPONAV_PATTERNS", "*.rb, *.py")
	t.Setenv("REPONAV_TIMEOUT", "2m")
	t.Setenv("REPONAV_CACHE_SIZE", "16")
	t.Setenv("REPONAV_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Server.Root)
	assert.Equal(t, []string{"*.rb", "*.py"}, cfg.Server.Patterns)
	assert.Equal(t, 2*time.Minute, cfg.Client.Timeout)
	assert.Equal(t, 16, cfg.Server.CacheSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvInvalidNumber(t *testing.T) {
	t.Setenv("REPONAV_MAX_FILE_SIZE", "big")
	path := filepath.Join(t.TempDir(), "reponav.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reponav.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestWriteDefaultKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reponav.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	err := WriteDefault(path, false)
	assert.ErrorIs(t, err, fs.ErrExist)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  level: warn\n", string(data))

	require.NoError(t, WriteDefault(path, true))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}
