package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/indexer"
	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/internal/traversal"
	"github.com/dshills/callgraph-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeStoreUnavailable   = -32001 // The graph store cannot be reached
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeFunctionNotFound   = -32003 // No record for the requested name
)

// maxReportedErrors limits the error messages included in an index response
const maxReportedErrors = 5

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	opts := indexer.Options{
		Force: getBoolDefault(args, "force_reindex", false),
		Batch: getBoolDefault(args, "batch", s.cfg.Index.Batch),
		Prune: getBoolDefault(args, "prune", s.cfg.Index.Prune),
	}

	stats, err := s.orch.IndexProject(ctx, path, opts)
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if stats == nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":           err == nil,
		"run_id":            stats.RunID,
		"files_processed":   stats.FilesProcessed(),
		"files_indexed":     stats.FilesIndexed,
		"files_skipped":     stats.FilesSkipped,
		"files_failed":      stats.FilesFailed,
		"files_pruned":      stats.FilesPruned,
		"functions_indexed": stats.FunctionsIndexed,
		"function_errors":   stats.FunctionErrors,
		"duration_ms":       stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
		} else {
			response["errors"] = stats.ErrorMessages
		}
		response["error_count"] = errorCount
	}

	if err != nil {
		if errors.Is(err, indexer.ErrStoreUnavailable) {
			return nil, newMCPError(ErrorCodeStoreUnavailable, "graph store unavailable", response)
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", response)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetFunction handles the get_function tool invocation
func (s *Server) handleGetFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireName(args)
	if err != nil {
		return nil, err
	}

	fn, err := s.graph.GetFunction(ctx, name)
	if err != nil {
		return nil, graphError(err)
	}
	calls, err := s.graph.GetFunctionCalls(ctx, name)
	if err != nil {
		return nil, graphError(err)
	}
	callers, err := s.graph.GetFunctionCallers(ctx, name)
	if err != nil {
		return nil, graphError(err)
	}

	response := map[string]interface{}{
		"function": functionJSON(fn),
		"calls":    calls,
		"callers":  callers,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetDependencies handles the get_dependencies tool invocation
func (s *Server) handleGetDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireName(args)
	if err != nil {
		return nil, err
	}
	depth := getIntDefault(args, "max_depth", s.cfg.Traversal.DefaultDepth)

	tree, err := s.walker.Dependencies(ctx, name, depth)
	if err != nil {
		return nil, traversalError(err, depth)
	}

	response := map[string]interface{}{
		"name":      name,
		"max_depth": depth,
		"count":     tree.Size() - 1,
		"tree":      tree,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetAffected handles the get_affected tool invocation
func (s *Server) handleGetAffected(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireName(args)
	if err != nil {
		return nil, err
	}
	depth := getIntDefault(args, "max_depth", s.cfg.Traversal.DefaultDepth)

	affected, err := s.walker.Affected(ctx, name, depth)
	if err != nil {
		return nil, traversalError(err, depth)
	}

	response := map[string]interface{}{
		"name":      name,
		"max_depth": depth,
		"count":     len(affected),
		"affected":  affected,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListFunctions handles the list_functions tool invocation
func (s *Server) handleListFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	cursor := getStringDefault(args, "cursor", storage.CursorStart)
	limit := getIntDefault(args, "limit", graph.DefaultPageSize)
	if limit < 1 || limit > MaxListLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", MaxListLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	next, names, err := s.graph.GetAllFunctions(ctx, cursor, limit)
	if errors.Is(err, storage.ErrInvalidCursor) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid cursor", map[string]interface{}{
			"param": "cursor",
			"value": cursor,
		})
	}
	if err != nil {
		return nil, graphError(err)
	}

	response := map[string]interface{}{
		"cursor":    next,
		"functions": names,
		"done":      next == storage.CursorStart,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.graph.GetStats(ctx)
	if err != nil {
		return nil, graphError(err)
	}

	response := map[string]interface{}{
		"indexing": s.orch.Indexing(),
		"statistics": map[string]interface{}{
			"files_count":     stats.FileCount,
			"functions_count": stats.FunctionCount,
			"timestamp":       stats.Timestamp.UTC().Format(time.RFC3339),
		},
		"store": map[string]interface{}{
			"engine":     s.cfg.Store.Engine,
			"build_mode": storage.BuildMode,
			"driver":     storage.DriverName,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// arguments returns the request's argument map. Missing arguments are an empty map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireName(args map[string]interface{}) (string, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}
	if !types.ValidName(name) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid function name", map[string]interface{}{
			"param":  "name",
			"reason": "must not contain ':'",
		})
	}
	return name, nil
}

// graphError maps graph and storage errors onto MCP errors
func graphError(err error) error {
	switch {
	case errors.Is(err, graph.ErrFunctionNotFound):
		return newMCPError(ErrorCodeFunctionNotFound, "function not found", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, graph.ErrInvalidName):
		return newMCPError(ErrorCodeInvalidParams, "invalid function name", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, storage.ErrUnavailable):
		return newMCPError(ErrorCodeStoreUnavailable, "graph store unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, "graph query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func traversalError(err error, depth int) error {
	if errors.Is(err, traversal.ErrInvalidDepth) {
		return newMCPError(ErrorCodeInvalidParams, "max_depth must be at least 1", map[string]interface{}{
			"param": "max_depth",
			"value": depth,
		})
	}
	return graphError(err)
}

func functionJSON(fn *types.Function) map[string]interface{} {
	return map[string]interface{}{
		"name":       fn.Name,
		"file":       fn.File,
		"line_start": fn.StartLine,
		"line_end":   fn.EndLine,
		"params":     fn.Params,
		"async":      fn.Async,
		"exported":   fn.Exported,
		"type":       fn.Type,
		"indexed_at": fn.IndexedAt.UTC().Format(time.RFC3339Nano),
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is absolute and exists
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return ErrPathNotReadable
		}
		_ = f.Close()
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
