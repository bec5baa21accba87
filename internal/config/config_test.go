package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/callgraph-mcp/internal/indexer"
	"github.com/dshills/callgraph-mcp/internal/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, storage.EngineSQLite, cfg.Store.Engine)
	assert.Equal(t, DefaultDBPath, cfg.Store.Path)
	assert.Equal(t, int64(indexer.DefaultMaxFileSize), cfg.Index.MaxFileSize)
	assert.True(t, cfg.Index.UseGitignore)
	assert.Equal(t, DefaultDepth, cfg.Traversal.DefaultDepth)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  engine: badger
  path: /var/lib/callgraph
index:
  extensions: [".js", ".ts"]
  batch: true
  prune: true
traversal:
  default_depth: 3
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, storage.EngineBadger, cfg.Store.Engine)
	assert.Equal(t, "/var/lib/callgraph", cfg.Store.Path)
	assert.Equal(t, []string{".js", ".ts"}, cfg.Index.Extensions)
	assert.True(t, cfg.Index.Batch)
	assert.True(t, cfg.Index.Prune)
	assert.Equal(t, 3, cfg.Traversal.DefaultDepth)
	assert.Equal(t, "json", cfg.Log.Format)

	// Unset sections keep their defaults
	assert.Equal(t, indexer.DefaultIgnoreDirs, cfg.Index.IgnoreDirs)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  path: /from/file.db\nlog:\n  level: info\n")

	t.Setenv(EnvDBPath, "/from/env.db")
	t.Setenv(EnvStore, storage.EngineBadger)
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.Store.Path)
	assert.Equal(t, storage.EngineBadger, cfg.Store.Engine)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "store: [not a map"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Store.Engine = "redis" }},
		{"negative max size", func(c *Config) { c.Index.MaxFileSize = -1 }},
		{"zero depth", func(c *Config) { c.Traversal.DefaultDepth = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestStorageOptions_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Default()
	opts, err := cfg.StorageOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".callgraph", "callgraph.db"), opts.Path)
	assert.Equal(t, storage.EngineSQLite, opts.Engine)

	cfg.Store.Path = "/abs/path.db"
	opts, err = cfg.StorageOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, "/abs/path.db", opts.Path)
}

func TestWalkOptions(t *testing.T) {
	cfg := Default()
	cfg.Index.Extensions = []string{".go"}

	opts := cfg.WalkOptions()
	assert.Equal(t, []string{".go"}, opts.Extensions)
	assert.Equal(t, cfg.Index.MaxFileSize, opts.MaxFileSize)
	assert.True(t, opts.UseGitignore)
}
