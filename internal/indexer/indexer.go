package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/pkg/types"
)

var (
	// ErrStoreUnavailable aborts a run when the store cannot be reached
	ErrStoreUnavailable = errors.New("graph store unavailable")
	// ErrIndexInProgress is returned when a run is already active
	ErrIndexInProgress = errors.New("indexing already in progress")
	// ErrInvalidParseResult marks a parser result that failed the shape check
	ErrInvalidParseResult = errors.New("invalid parse result")
)

// isUnavailable reports whether err means the store is gone
func isUnavailable(err error) bool {
	return errors.Is(err, storage.ErrUnavailable) || errors.Is(err, ErrStoreUnavailable)
}

// Result holds per-file function counts
type Result struct {
	Indexed int
	Errors  int
}

// Indexer writes parsed functions for one file into the graph
type Indexer struct {
	graph  *graph.Store
	logger *slog.Logger
}

// New creates an Indexer writing to g
func New(g *graph.Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{graph: g, logger: logger}
}

// Index writes each function's record and then its outgoing edges. A failing
// function is logged and counted and the rest are still attempted. If the
// store becomes unavailable the remaining functions are counted as errors
// and the returned error wraps ErrStoreUnavailable.
func (idx *Indexer) Index(ctx context.Context, filePath string, fns []types.Function) (Result, error) {
	var result Result

	for i := range fns {
		fn := &fns[i]
		if fn.File == "" {
			fn.File = filePath
		}

		if err := idx.indexFunction(ctx, fn); err != nil {
			if isUnavailable(err) {
				result.Errors += len(fns) - i
				return result, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
			}
			idx.logger.Warn("failed to index function",
				slog.String("file", filePath),
				slog.String("function", fn.Name),
				slog.String("error", err.Error()))
			result.Errors++
			continue
		}
		result.Indexed++
	}

	return result, nil
}

func (idx *Indexer) indexFunction(ctx context.Context, fn *types.Function) error {
	if err := idx.graph.SetFunction(ctx, fn); err != nil {
		return err
	}
	for _, callee := range fn.UniqueCalls() {
		if err := idx.graph.AddFunctionCall(ctx, fn.Name, callee); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", fn.Name, callee, err)
		}
	}
	return nil
}
