package traversal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEdges is an in-memory edge reader that counts expansions
type fakeEdges struct {
	calls   map[string][]string
	callers map[string][]string
	reads   map[string]int
	err     error
}

func newFakeEdges(edges ...[2]string) *fakeEdges {
	f := &fakeEdges{
		calls:   map[string][]string{},
		callers: map[string][]string{},
		reads:   map[string]int{},
	}
	for _, e := range edges {
		f.calls[e[0]] = append(f.calls[e[0]], e[1])
		f.callers[e[1]] = append(f.callers[e[1]], e[0])
	}
	return f
}

func (f *fakeEdges) GetFunctionCalls(ctx context.Context, name string) ([]string, error) {
	f.reads[name]++
	if f.err != nil {
		return nil, f.err
	}
	return f.calls[name], nil
}

func (f *fakeEdges) GetFunctionCallers(ctx context.Context, name string) ([]string, error) {
	f.reads[name]++
	if f.err != nil {
		return nil, f.err
	}
	return f.callers[name], nil
}

func setupGraphWalker(t *testing.T, edges ...[2]string) *Walker {
	t.Helper()
	kv, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	g := graph.New(kv)
	for _, e := range edges {
		require.NoError(t, g.AddFunctionCall(context.Background(), e[0], e[1]))
	}
	return New(g)
}

func TestCycle_EndToEnd(t *testing.T) {
	w := setupGraphWalker(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})
	ctx := context.Background()

	tree, err := w.Dependencies(ctx, "a", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tree.Names())
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "b", tree.Children[0].Name)
	require.Len(t, tree.Children[0].Children, 1)
	c := tree.Children[0].Children[0]
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, 2, c.Depth)
	assert.Empty(t, c.Children, "a must not repeat under c")

	affected, err := w.Affected(ctx, "c", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, affected)
}

func TestDepthOne(t *testing.T) {
	w := setupGraphWalker(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"x", "b"})
	ctx := context.Background()

	tree, err := w.Dependencies(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tree.Names())
	assert.Empty(t, tree.Children[0].Children)

	affected, err := w.Affected(ctx, "c", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, affected)
}

func TestDependencies_SharedNameAppearsOnce(t *testing.T) {
	f := newFakeEdges(
		[2]string{"a", "b"}, [2]string{"a", "c"},
		[2]string{"b", "d"}, [2]string{"c", "d"},
	)
	tree, err := New(f).Dependencies(context.Background(), "a", 5)
	require.NoError(t, err)

	assert.Equal(t, 4, tree.Size())
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, tree.Names())
}

func TestDependencies_NeverExpandsPastMaxDepth(t *testing.T) {
	var edges [][2]string
	for i := 0; i < 10; i++ {
		edges = append(edges, [2]string{fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1)})
	}
	f := newFakeEdges(edges...)

	tree, err := New(f).Dependencies(context.Background(), "n0", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"n0", "n1", "n2", "n3"}, tree.Names())

	// Leaves at depth 3 are never expanded
	assert.Equal(t, 1, f.reads["n2"])
	assert.Zero(t, f.reads["n3"])
}

func TestAffected_BoundedByDepth(t *testing.T) {
	f := newFakeEdges(
		[2]string{"top", "mid"}, [2]string{"mid", "leaf"},
		[2]string{"other", "leaf"}, [2]string{"leaf", "leaf"},
	)
	w := New(f)
	ctx := context.Background()

	affected, err := w.Affected(ctx, "leaf", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "other"}, affected)

	affected, err = w.Affected(ctx, "leaf", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "other", "top"}, affected)
}

func TestEmptyResults(t *testing.T) {
	w := setupGraphWalker(t, [2]string{"a", "b"})
	ctx := context.Background()

	for _, name := range []string{"b", "absent"} {
		t.Run(name, func(t *testing.T) {
			tree, err := w.Dependencies(ctx, name, 3)
			require.NoError(t, err)
			assert.Equal(t, name, tree.Name)
			assert.Empty(t, tree.Children)
		})
	}

	affected, err := w.Affected(ctx, "a", 3)
	require.NoError(t, err)
	assert.NotNil(t, affected)
	assert.Empty(t, affected)

	affected, err = w.Affected(ctx, "absent", 3)
	require.NoError(t, err)
	assert.Empty(t, affected)
}

func TestInvalidDepth(t *testing.T) {
	w := New(newFakeEdges())
	ctx := context.Background()

	_, err := w.Dependencies(ctx, "a", 0)
	assert.ErrorIs(t, err, ErrInvalidDepth)
	_, err = w.Affected(ctx, "a", -1)
	assert.ErrorIs(t, err, ErrInvalidDepth)
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("store down")
	f := newFakeEdges()
	f.err = boom
	w := New(f)

	_, err := w.Dependencies(context.Background(), "a", 2)
	assert.ErrorIs(t, err, boom)
	_, err = w.Affected(context.Background(), "a", 2)
	assert.ErrorIs(t, err, boom)
}

func TestNode_Size(t *testing.T) {
	var nilNode *Node
	assert.Zero(t, nilNode.Size())
	assert.Equal(t, 1, (&Node{Name: "a"}).Size())
}
