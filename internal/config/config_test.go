package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 60*time.Second, cfg.LoadTimeout)
	assert.Equal(t, "spec", cfg.Reporter)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "suitemux.yaml", `
load_timeout: 5s
reporter: ndjson
base: file:///suites/
local: unit
children:
  - label: Child Suite 1
    location: child.html?a
  - location: child2.html
redis:
  addr: localhost:6379
`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.LoadTimeout)
	assert.Equal(t, "ndjson", cfg.Reporter)
	assert.Equal(t, "file:///suites/", cfg.Base)
	assert.Equal(t, "unit", cfg.Local)
	assert.Equal(t, []Child{
		{Label: "Child Suite 1", Location: "child.html?a"},
		{Location: "child2.html"},
	}, cfg.Children)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// Untouched keys keep their defaults.
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "auto", cfg.Color)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "suitemux.json", `{"load_timeout": "2m", "children": [{"location": "exec:unit"}]}`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.LoadTimeout)
	require.Len(t, cfg.Children, 1)
	assert.Equal(t, "exec:unit", cfg.Children[0].Location)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := write(t, "suitemux.yaml", "reporter: ndjson\nredis:\n  prefix: a:\n")
	cfg, err := LoadWithEnv(path, env(map[string]string{
		"SUITEMUX_REPORTER":     "none",
		"SUITEMUX_LOAD_TIMEOUT": "250ms",
		"SUITEMUX_REDIS_ADDR":   "redis:6379",
		"SUITEMUX_HTTP_ADDR":    ":9090",
		"SUITEMUX_HANDLE":       "ignored",
	}))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Reporter)
	assert.Equal(t, 250*time.Millisecond, cfg.LoadTimeout)
	assert.Equal(t, Redis{Addr: "redis:6379", Prefix: "a:"}, cfg.Redis)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		_, err := LoadWithEnv(write(t, "suitemux.yaml", "children: [\n"), env(nil))
		assert.ErrorContains(t, err, "failed to parse suitemux.yaml")
	})

	t.Run("Unknown key", func(t *testing.T) {
		_, err := LoadWithEnv(write(t, "suitemux.yaml", "timeout: 5s\n"), env(nil))
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("Bad duration", func(t *testing.T) {
		_, err := LoadWithEnv("", env(map[string]string{"SUITEMUX_LOAD_TIMEOUT": "soon"}))
		assert.Error(t, err)
	})

	t.Run("Invalid values", func(t *testing.T) {
		path := write(t, "suitemux.yaml", "load_timeout: 0s\ncolor: maybe\nchildren:\n  - {}\n")
		_, err := LoadWithEnv(path, env(nil))
		require.Error(t, err)
		assert.ErrorContains(t, err, "load_timeout must be positive")
		assert.ErrorContains(t, err, "color must be auto, always or never")
		assert.ErrorContains(t, err, "children[0]: location is required")
	})
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "suitemux.json"), []byte("{}"), 0644))
	assert.Equal(t, filepath.Join(dir, "suitemux.json"), Find(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "suitemux.yaml"), []byte(""), 0644))
	assert.Equal(t, filepath.Join(dir, "suitemux.yaml"), Find(dir))
}
