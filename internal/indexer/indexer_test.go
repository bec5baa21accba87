package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/parser"
	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/internal/telemetry"
	"github.com/dshills/callgraph-mcp/internal/traversal"
	"github.com/dshills/callgraph-mcp/pkg/types"
)

var errInjected = errors.New("injected write failure")

// countingStore counts submitted writes and can fail any submission that
// touches failKey
type countingStore struct {
	storage.Store

	mu      sync.Mutex
	writes  int
	failKey string
}

func (c *countingStore) count(n int) {
	c.mu.Lock()
	c.writes += n
	c.mu.Unlock()
}

func (c *countingStore) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *countingStore) Reset() {
	c.mu.Lock()
	c.writes = 0
	c.mu.Unlock()
}

func (c *countingStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	c.count(1)
	return c.Store.HSet(ctx, key, fields)
}

func (c *countingStore) HDel(ctx context.Context, key string, fields ...string) error {
	c.count(1)
	return c.Store.HDel(ctx, key, fields...)
}

func (c *countingStore) SAdd(ctx context.Context, key string, members ...string) error {
	c.count(1)
	return c.Store.SAdd(ctx, key, members...)
}

func (c *countingStore) SRem(ctx context.Context, key string, members ...string) error {
	c.count(1)
	return c.Store.SRem(ctx, key, members...)
}

func (c *countingStore) Del(ctx context.Context, keys ...string) error {
	c.count(1)
	return c.Store.Del(ctx, keys...)
}

func (c *countingStore) Pipeline() storage.Pipeline {
	return &countingPipeline{Pipeline: c.Store.Pipeline(), store: c}
}

type countingPipeline struct {
	storage.Pipeline
	store   *countingStore
	touched bool
}

func (p *countingPipeline) touch(keys ...string) {
	for _, k := range keys {
		if p.store.failKey != "" && k == p.store.failKey {
			p.touched = true
		}
	}
}

func (p *countingPipeline) HSet(key string, fields map[string]string) {
	p.touch(key)
	p.Pipeline.HSet(key, fields)
}

func (p *countingPipeline) HDel(key string, fields ...string) {
	p.touch(key)
	p.Pipeline.HDel(key, fields...)
}

func (p *countingPipeline) SAdd(key string, members ...string) {
	p.touch(key)
	p.Pipeline.SAdd(key, members...)
}

func (p *countingPipeline) SRem(key string, members ...string) {
	p.touch(key)
	p.Pipeline.SRem(key, members...)
}

func (p *countingPipeline) Del(keys ...string) {
	p.touch(keys...)
	p.Pipeline.Del(keys...)
}

func (p *countingPipeline) Exec(ctx context.Context) error {
	if p.touched {
		p.touched = false
		// Drop the queued commands without applying them
		p.Pipeline = p.store.Store.Pipeline()
		return errInjected
	}
	p.store.count(p.Pipeline.Len())
	return p.Pipeline.Exec(ctx)
}

type testEnv struct {
	kv      storage.Store
	counter *countingStore
	graph   *graph.Store
	metrics *telemetry.Metrics
	orch    *Orchestrator
}

func setupTestEnv(t *testing.T, parsers ...parser.Capability) *testEnv {
	t.Helper()

	kv, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = kv.Close() })

	counter := &countingStore{Store: kv}
	g := graph.New(counter)
	m := telemetry.NewMetrics(nil)

	cfg := Config{Walk: DefaultWalkOptions(), Metrics: m}
	if len(parsers) > 0 {
		cfg.Parsers = parser.NewRegistry(parsers...)
	}

	return &testEnv{
		kv:      kv,
		counter: counter,
		graph:   g,
		metrics: m,
		orch:    NewOrchestrator(g, cfg),
	}
}

// createTestFile writes content under dir and returns its path
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	return filePath
}

// stubParser handles one extension and returns a canned result
type stubParser struct {
	ext     string
	extract func(path string) (*types.ParseResult, error)
}

func (s *stubParser) CanHandle(path string) bool {
	return filepath.Ext(path) == s.ext
}

func (s *stubParser) Extract(ctx context.Context, path string, content []byte) (*types.ParseResult, error) {
	return s.extract(path)
}

func stubFunctions(path string, names ...string) *types.ParseResult {
	fns := make([]types.Function, 0, len(names))
	for i, name := range names {
		fns = append(fns, types.Function{
			Name:      name,
			File:      path,
			StartLine: i + 1,
			EndLine:   i + 1,
			Params:    []string{},
			Type:      types.TypeFunction,
		})
	}
	return &types.ParseResult{Functions: fns, Language: "stub"}
}

func TestIndexer_Index(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	idx := New(env.graph, nil)

	fns := []types.Function{
		{Name: "main", StartLine: 1, EndLine: 5, Type: types.TypeFunction, Calls: []string{"run", "run", ""}},
		{Name: "run", StartLine: 7, EndLine: 9, Type: types.TypeFunction},
	}

	res, err := idx.Index(ctx, "/src/main.go", fns)
	require.NoError(t, err)
	assert.Equal(t, Result{Indexed: 2, Errors: 0}, res)

	main, err := env.graph.GetFunction(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "/src/main.go", main.File, "empty File defaults to the indexed path")

	calls, err := env.graph.GetFunctionCalls(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, calls)

	callers, err := env.graph.GetFunctionCallers(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, callers)
}

func TestIndexer_Index_PerFunctionFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.counter.failKey = graph.FunctionKey("broken")
	idx := New(env.graph, nil)

	fns := []types.Function{
		{Name: "a", StartLine: 1, EndLine: 1, Type: types.TypeFunction},
		{Name: "broken", StartLine: 2, EndLine: 2, Type: types.TypeFunction},
		{Name: "c", StartLine: 3, EndLine: 3, Type: types.TypeFunction},
	}

	res, err := idx.Index(ctx, "/src/x.go", fns)
	require.NoError(t, err, "a single failing function must not fail the file")
	assert.Equal(t, Result{Indexed: 2, Errors: 1}, res)

	_, err = env.graph.GetFunction(ctx, "c")
	assert.NoError(t, err, "functions after the failure are still written")
	_, err = env.graph.GetFunction(ctx, "broken")
	assert.ErrorIs(t, err, graph.ErrFunctionNotFound)
}

func TestIndexer_Index_InvalidRecord(t *testing.T) {
	env := setupTestEnv(t)
	idx := New(env.graph, nil)

	fns := []types.Function{
		{Name: "ok", StartLine: 1, EndLine: 1, Type: types.TypeFunction},
		{Name: "bad", StartLine: 5, EndLine: 2, Type: types.TypeFunction},
	}

	res, err := idx.Index(context.Background(), "/src/x.go", fns)
	require.NoError(t, err)
	assert.Equal(t, Result{Indexed: 1, Errors: 1}, res)
}

func TestIndexer_Index_StoreUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, env.kv.Close())
	idx := New(env.graph, nil)

	fns := []types.Function{
		{Name: "a", StartLine: 1, EndLine: 1, Type: types.TypeFunction},
		{Name: "b", StartLine: 2, EndLine: 2, Type: types.TypeFunction},
	}

	res, err := idx.Index(context.Background(), "/src/x.go", fns)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, Result{Indexed: 0, Errors: 2}, res)
}

func TestIndexProject_Basic(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "main.go", "package main\n\nfunc main() {\n\trun()\n}\n\nfunc run() {}\n")
	createTestFile(t, tmpDir, "README.md", "# readme\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped, "README has no parser")
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 2, stats.FilesProcessed())
	assert.Equal(t, 2, stats.FunctionsIndexed)
	assert.Empty(t, stats.ErrorMessages)

	fn, err := env.graph.GetFunction(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "main.go"), fn.File)
	assert.Equal(t, 3, fn.StartLine)
	assert.Equal(t, 5, fn.EndLine)

	_, ok, err := env.graph.GetFileHash(ctx, filepath.Join(tmpDir, "main.go"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = env.graph.GetFileHash(ctx, filepath.Join(tmpDir, "README.md"))
	require.NoError(t, err)
	assert.False(t, ok, "skipped files get no fingerprint")
}

func TestIndexProject_Incremental(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() { b() }\n")
	createTestFile(t, tmpDir, "b.go", "package p\n\nfunc b() {}\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	stats1, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats1.FilesIndexed)
	assert.Positive(t, env.counter.Writes())

	env.counter.Reset()
	stats2, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.FilesIndexed)
	assert.Equal(t, 2, stats2.FilesSkipped)
	assert.Equal(t, 0, env.counter.Writes(), "an unchanged tree must cause no writes")
	assert.NotEqual(t, stats1.RunID, stats2.RunID)

	stats3, err := env.orch.IndexProject(ctx, tmpDir, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats3.FilesIndexed)
	assert.Positive(t, env.counter.Writes())
}

func TestIndexProject_ModifiedFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := createTestFile(t, tmpDir, "a.go", "package p\n\nfunc foo() { helper() }\n\nfunc helper() {}\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	before, _, err := env.graph.GetFileHash(ctx, path)
	require.NoError(t, err)

	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc bar() { helper() }\n\nfunc helper() {}\n")

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)

	_, err = env.graph.GetFunction(ctx, "foo")
	assert.ErrorIs(t, err, graph.ErrFunctionNotFound, "renamed function must not survive")

	_, err = env.graph.GetFunction(ctx, "bar")
	assert.NoError(t, err)

	callers, err := env.graph.GetFunctionCallers(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, callers)

	after, _, err := env.graph.GetFileHash(ctx, path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestIndexProject_NoDeleteKeepsStaleData(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc foo() {}\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)

	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc bar() {}\n")
	_, err = env.orch.IndexProject(ctx, tmpDir, Options{NoDelete: true})
	require.NoError(t, err)

	names, err := env.graph.ListFunctions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, names)
}

func TestIndexProject_CycleTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() { b() }\n")
	createTestFile(t, tmpDir, "b.go", "package p\n\nfunc b() { c() }\n")
	createTestFile(t, tmpDir, "c.go", "package p\n\nfunc c() { a() }\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)

	w := traversal.New(env.graph)
	tree, err := w.Dependencies(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tree.Names())

	affected, err := w.Affected(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, affected)
}

func TestIndexProject_NameCollisionLastWriteWins(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc helper() {}\n")
	second := createTestFile(t, tmpDir, "b.go", "package p\n\n\nfunc helper() {}\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)

	fn, err := env.graph.GetFunction(ctx, "helper")
	require.NoError(t, err)
	assert.Equal(t, second, fn.File)
	assert.Equal(t, 4, fn.StartLine)
}

func TestIndexProject_Batch(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() { b() }\n\nfunc b() {}\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{Batch: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FunctionsIndexed)

	callers, err := env.graph.GetFunctionCallers(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, callers)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.BatchesTotal.WithLabelValues(telemetry.ResultOK)))
}

func TestIndexProject_BatchFailure(t *testing.T) {
	tmpDir := t.TempDir()
	bad := createTestFile(t, tmpDir, "a.go", "package p\n\nfunc broken() {}\n\nfunc other() {}\n")
	createTestFile(t, tmpDir, "b.go", "package p\n\nfunc fine() {}\n")

	env := setupTestEnv(t)
	env.counter.failKey = graph.FunctionKey("broken")
	ctx := context.Background()

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{Batch: true})
	require.NoError(t, err, "a failed batch fails only its file")
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 2, stats.FunctionErrors)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], bad)

	_, ok, err := env.graph.GetFileHash(ctx, bad)
	require.NoError(t, err)
	assert.False(t, ok, "a failed file must be retried on the next run")

	_, err = env.graph.GetFunction(ctx, "other")
	assert.ErrorIs(t, err, graph.ErrFunctionNotFound, "nothing from a failed batch is applied")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.BatchesTotal.WithLabelValues(telemetry.ResultFailed)))
}

func TestIndexProject_InvalidParseResult(t *testing.T) {
	tmpDir := t.TempDir()
	path := createTestFile(t, tmpDir, "x.stub", "anything")

	env := setupTestEnv(t, &stubParser{ext: ".stub", extract: func(string) (*types.ParseResult, error) {
		return &types.ParseResult{Language: "stub"}, nil
	}})
	ctx := context.Background()

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)

	res, err := env.orch.IndexFile(ctx, path, Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrInvalidParseResult)
	assert.ErrorIs(t, res.Err, types.ErrNilFunctions)

	_, ok, err := env.graph.GetFileHash(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexProject_ParseError(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.stub", "a")
	createTestFile(t, tmpDir, "b.stub", "b")

	env := setupTestEnv(t, &stubParser{ext: ".stub", extract: func(path string) (*types.ParseResult, error) {
		if filepath.Base(path) == "a.stub" {
			return nil, errors.New("parser crashed")
		}
		return stubFunctions(path, "b"), nil
	}})

	stats, err := env.orch.IndexProject(context.Background(), tmpDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesIndexed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "parser crashed")
}

func TestIndexProject_StoreUnavailable(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() {}\n")

	env := setupTestEnv(t)
	require.NoError(t, env.kv.Close())

	stats, err := env.orch.IndexProject(context.Background(), tmpDir, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotNil(t, stats, "statistics are returned on abort")
	assert.Equal(t, 0, stats.FilesProcessed())
	assert.Len(t, stats.ErrorMessages, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RunsTotal.WithLabelValues(telemetry.ResultAborted)))
}

func TestIndexProject_StoreLostMidRun(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.stub", "a")
	createTestFile(t, tmpDir, "b.stub", "b")
	createTestFile(t, tmpDir, "c.stub", "c")

	var kv storage.Store
	env := setupTestEnv(t, &stubParser{ext: ".stub", extract: func(path string) (*types.ParseResult, error) {
		name := filepath.Base(path)[:1]
		if name == "b" {
			_ = kv.Close()
		}
		return stubFunctions(path, name), nil
	}})
	kv = env.kv

	stats, err := env.orch.IndexProject(context.Background(), tmpDir, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed, "c is never attempted")
	assert.Len(t, stats.ErrorMessages, 1, "the abort is reported once")
}

func TestIndexProject_Prune(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() { b() }\n")
	gone := createTestFile(t, tmpDir, "b.go", "package p\n\nfunc b() {}\n")

	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesPruned)

	_, err = env.graph.GetFunction(ctx, "b")
	assert.ErrorIs(t, err, graph.ErrFunctionNotFound)

	files, err := env.graph.IndexedFiles(ctx)
	require.NoError(t, err)
	assert.NotContains(t, files, gone)
	assert.Len(t, files, 1)

	// The edge from a belongs to a.go and survives the prune
	calls, err := env.graph.GetFunctionCalls(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, calls)
}

func TestIndexProject_InProgress(t *testing.T) {
	env := setupTestEnv(t)

	require.True(t, env.orch.lock.TryAcquire())
	assert.True(t, env.orch.Indexing())

	stats, err := env.orch.IndexProject(context.Background(), t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrIndexInProgress)
	assert.Nil(t, stats)

	env.orch.lock.Release()
	assert.False(t, env.orch.Indexing())
}

func TestIndexProject_ContextCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() {}\n")

	env := setupTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.FilesIndexed)
}

func TestIndexProject_Metrics(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.go", "package p\n\nfunc a() {}\n\nfunc b() {}\n")
	createTestFile(t, tmpDir, "notes.txt", "text")

	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)
	_, err = env.orch.IndexProject(ctx, tmpDir, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FilesTotal.WithLabelValues(telemetry.OutcomeIndexed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.FilesTotal.WithLabelValues(telemetry.OutcomeSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.FunctionsTotal.WithLabelValues(telemetry.ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.RunsTotal.WithLabelValues(telemetry.ResultOK)))
}

func TestIndexFile_Unsupported(t *testing.T) {
	tmpDir := t.TempDir()
	path := createTestFile(t, tmpDir, "style.css", "body {}")

	env := setupTestEnv(t)
	res, err := env.orch.IndexFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, "unsupported", res.Reason)
	assert.Equal(t, 0, env.counter.Writes())
}

func TestIndexFile_Missing(t *testing.T) {
	env := setupTestEnv(t)
	res, err := env.orch.IndexFile(context.Background(), filepath.Join(t.TempDir(), "gone.go"), Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
}

func TestIndexLock_ConcurrentAcquisition(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "TryAcquire succeeds when lock is available",
			testFunc: func(t *testing.T) {
				var lock IndexLock
				assert.True(t, lock.TryAcquire())
				assert.True(t, lock.Held())
				lock.Release()
				assert.False(t, lock.Held())
			},
		},
		{
			name: "TryAcquire fails when lock is held",
			testFunc: func(t *testing.T) {
				var lock IndexLock
				require.True(t, lock.TryAcquire())
				assert.False(t, lock.TryAcquire())
				lock.Release()
				assert.True(t, lock.TryAcquire(), "lock should be available after Release")
				lock.Release()
			},
		},
		{
			name: "Concurrent goroutines attempting acquisition",
			testFunc: func(t *testing.T) {
				var lock IndexLock
				const numGoroutines = 100

				acquired := make([]bool, numGoroutines)
				var wg sync.WaitGroup
				wg.Add(numGoroutines)
				for i := 0; i < numGoroutines; i++ {
					go func(idx int) {
						defer wg.Done()
						acquired[idx] = lock.TryAcquire()
					}(i)
				}
				wg.Wait()

				successCount := 0
				for _, ok := range acquired {
					if ok {
						successCount++
					}
				}
				assert.Equal(t, 1, successCount, "exactly one goroutine should acquire the lock")
				lock.Release()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}
