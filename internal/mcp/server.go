package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/callgraph-mcp/internal/config"
	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/indexer"
	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/internal/telemetry"
	"github.com/dshills/callgraph-mcp/internal/traversal"
)

const (
	// ServerName is the MCP server name
	ServerName = "callgraph-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Store
	graph   *graph.Store
	orch    *indexer.Orchestrator
	walker  *traversal.Walker
	cfg     *config.Config
	logger  *slog.Logger
}

// NewServer opens the store described by cfg and creates a server over it
func NewServer(cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := cfg.StorageOptions(logger)
	if err != nil {
		return nil, err
	}

	// Create the parent directory if it doesn't exist
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.OpenWithRetry(context.Background(), opts, storage.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return NewServerWithStore(store, cfg, logger, metrics), nil
}

// NewServerWithStore creates a server over an already opened store. The
// server owns the store and closes it when Serve returns.
func NewServerWithStore(store storage.Store, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := graph.New(store)
	orch := indexer.NewOrchestrator(g, indexer.Config{
		Walk:    cfg.WalkOptions(),
		Logger:  logger,
		Metrics: metrics,
	})

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:     mcpServer,
		storage: store,
		graph:   g,
		orch:    orch,
		walker:  traversal.New(g),
		cfg:     cfg,
		logger:  logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the store without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(getFunctionTool(), s.handleGetFunction)
	s.mcp.AddTool(getDependenciesTool(), s.handleGetDependencies)
	s.mcp.AddTool(getAffectedTool(), s.handleGetAffected)
	s.mcp.AddTool(listFunctionsTool(), s.handleListFunctions)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
