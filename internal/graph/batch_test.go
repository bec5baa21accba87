package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFunctions(n int) []types.Function {
	fns := make([]types.Function, n)
	for i := range fns {
		fns[i] = *fn(fmt.Sprintf("fn%03d", i), "big.js", i+1, i+1)
		if i > 0 {
			fns[i].Calls = []string{fmt.Sprintf("fn%03d", i-1)}
		}
	}
	return fns
}

func TestBatch_IndexFunctions(t *testing.T) {
	g, kv := setupTestGraph(t)
	ctx := context.Background()

	result, err := NewBatch(g).IndexFunctions(ctx, makeFunctions(100))
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Indexed: 100, Errors: 0}, result)

	names, err := g.ListFunctions(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 100)

	callers, err := g.GetFunctionCallers(ctx, "fn010")
	require.NoError(t, err)
	assert.Equal(t, []string{"fn011"}, callers)

	assertEdgeSymmetry(t, kv)
}

func TestBatch_IndexFunctions_StoreUnavailable(t *testing.T) {
	g, kv := setupTestGraph(t)
	require.NoError(t, kv.Close())

	result, err := NewBatch(g).IndexFunctions(context.Background(), makeFunctions(100))
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, BatchResult{Indexed: 0, Errors: 100}, result)
}

func TestBatch_IndexFunctions_InvalidRecords(t *testing.T) {
	g, _ := setupTestGraph(t)
	ctx := context.Background()

	fns := makeFunctions(3)
	fns[1].Name = ""
	fns[2].Calls = append(fns[2].Calls, "bad:callee", "fn000", "fn000")

	result, err := NewBatch(g).IndexFunctions(ctx, fns)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Indexed: 2, Errors: 1}, result)

	calls, err := g.GetFunctionCalls(ctx, "fn002")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fn001", "fn000"}, calls)
}

func TestBatch_IndexFunctions_Empty(t *testing.T) {
	g, _ := setupTestGraph(t)

	result, err := NewBatch(g).IndexFunctions(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, result)
}

func TestBatch_DeleteFiles(t *testing.T) {
	g, _ := setupTestGraph(t)
	ctx := context.Background()

	require.NoError(t, g.SetFunction(ctx, fn("a", "a.js", 1, 1)))
	require.NoError(t, g.SetFileHash(ctx, "a.js", "1"))
	require.NoError(t, g.SetFileHash(ctx, "b.js", "2"))
	require.NoError(t, g.SetFileHash(ctx, "keep.js", "3"))

	n, err := NewBatch(g).DeleteFiles(ctx, []string{"a.js", "b.js"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files, err := g.IndexedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"keep.js": "3"}, files)

	_, ok, err := g.FileIndexedAt(ctx, "a.js")
	require.NoError(t, err)
	assert.False(t, ok)

	// Function records are not cascaded
	_, err = g.GetFunction(ctx, "a")
	assert.NoError(t, err)
}

func TestBatch_DeleteFiles_StoreUnavailable(t *testing.T) {
	g, kv := setupTestGraph(t)
	require.NoError(t, kv.Close())

	n, err := NewBatch(g).DeleteFiles(context.Background(), []string{"a.js"})
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.Zero(t, n)
}
