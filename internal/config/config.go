// Package config loads callgraph settings from an optional YAML file and the
// environment. Environment variables win over the file, the file wins over
// the defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/callgraph-mcp/internal/indexer"
	"github.com/dshills/callgraph-mcp/internal/storage"
)

// Environment variables read by Load
const (
	EnvDBPath    = "CALLGRAPH_DB_PATH"
	EnvStore     = "CALLGRAPH_STORE"
	EnvLogLevel  = "CALLGRAPH_LOG_LEVEL"
	EnvLogFormat = "CALLGRAPH_LOG_FORMAT"
)

// DefaultDBPath is where the graph lives when nothing else is configured
const DefaultDBPath = "~/.callgraph/callgraph.db"

// DefaultDepth is the traversal depth used when a caller gives none
const DefaultDepth = 5

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full set of settings
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Index     IndexConfig     `yaml:"index"`
	Traversal TraversalConfig `yaml:"traversal"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig selects the storage engine
type StoreConfig struct {
	Engine string `yaml:"engine"` // sqlite or badger
	Path   string `yaml:"path"`
}

// IndexConfig controls file discovery and run options
type IndexConfig struct {
	Extensions   []string `yaml:"extensions"`
	MaxFileSize  int64    `yaml:"max_file_size"`
	IgnoreDirs   []string `yaml:"ignore_dirs"`
	UseGitignore bool     `yaml:"use_gitignore"`
	Batch        bool     `yaml:"batch"`
	Prune        bool     `yaml:"prune"`
}

// TraversalConfig holds traversal defaults
type TraversalConfig struct {
	DefaultDepth int `yaml:"default_depth"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Engine: storage.EngineSQLite,
			Path:   DefaultDBPath,
		},
		Index: IndexConfig{
			MaxFileSize:  indexer.DefaultMaxFileSize,
			IgnoreDirs:   append([]string(nil), indexer.DefaultIgnoreDirs...),
			UseGitignore: true,
		},
		Traversal: TraversalConfig{DefaultDepth: DefaultDepth},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. An empty path skips the file; a named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store.Engine = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	switch c.Store.Engine {
	case "", storage.EngineSQLite, storage.EngineBadger:
	default:
		return fmt.Errorf("%w: store.engine %q (want sqlite or badger)", ErrInvalidConfig, c.Store.Engine)
	}
	if c.Index.MaxFileSize < 0 {
		return fmt.Errorf("%w: index.max_file_size must not be negative", ErrInvalidConfig)
	}
	if c.Traversal.DefaultDepth < 1 {
		return fmt.Errorf("%w: traversal.default_depth must be at least 1", ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// StorageOptions returns the options for storage.Open with "~" expanded
func (c *Config) StorageOptions(logger *slog.Logger) (storage.Options, error) {
	path, err := ExpandHome(c.Store.Path)
	if err != nil {
		return storage.Options{}, err
	}
	return storage.Options{Engine: c.Store.Engine, Path: path, Logger: logger}, nil
}

// WalkOptions returns the walker settings
func (c *Config) WalkOptions() indexer.WalkOptions {
	return indexer.WalkOptions{
		Extensions:   c.Index.Extensions,
		MaxFileSize:  c.Index.MaxFileSize,
		IgnoreDirs:   c.Index.IgnoreDirs,
		UseGitignore: c.Index.UseGitignore,
	}
}

// SlogLevel parses the configured level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, l.Level)
	}
	return level, nil
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
