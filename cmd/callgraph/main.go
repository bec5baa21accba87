package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/callgraph-mcp/internal/config"
	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	// Global flags
	configPath string
	dbPath     string
	storeName  string
	logLevel   string
	logFormat  string
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "callgraph",
	Short: "Incremental call graph indexer and query tool",
	Long: `callgraph indexes the functions and call edges of Go, JavaScript and
TypeScript sources into a persistent graph and answers dependency and
impact questions over it.

Unchanged files are skipped on re-runs, so indexing the same tree twice
only touches what changed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Graph store path (overrides config and "+config.EnvDBPath+")")
	rootCmd.PersistentFlags().StringVar(&storeName, "store", "", "Storage engine: sqlite or badger")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON for scripting")

	rootCmd.AddCommand(indexCmd, showCmd, depsCmd, affectedCmd, listCmd, statsCmd, serveCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if storeName != "" {
		cfg.Store.Engine = storeName
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr; stdout is reserved for command output and MCP
	logger, err = newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newLogger builds a text or JSON slog handler at the configured level
func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openStore opens the configured store, creating its parent directory
func openStore(ctx context.Context) (storage.Store, error) {
	opts, err := cfg.StorageOptions(logger)
	if err != nil {
		return nil, err
	}
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return storage.OpenWithRetry(ctx, opts, storage.DefaultRetryConfig())
}

// withGraph opens the store, runs fn over a graph on it and closes the store
func withGraph(ctx context.Context, fn func(g *graph.Store) error) error {
	kv, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()
	return fn(graph.New(kv))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "callgraph\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	},
}
