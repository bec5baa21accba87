package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/callgraph-mcp/internal/detector"
	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/parser"
	"github.com/dshills/callgraph-mcp/internal/telemetry"
)

// Options controls a single indexing run
type Options struct {
	// Force re-indexes files whose fingerprint is unchanged
	Force bool
	// NoDelete keeps a file's previous graph data instead of clearing it first
	NoDelete bool
	// Batch writes each file's functions in one grouped submission
	Batch bool
	// Prune removes data for previously indexed files under the root that
	// no longer exist on disk
	Prune bool
}

// Outcome is what happened to one file
type Outcome string

const (
	OutcomeIndexed Outcome = telemetry.OutcomeIndexed
	OutcomeSkipped Outcome = telemetry.OutcomeSkipped
	OutcomeFailed  Outcome = telemetry.OutcomeFailed
)

// FileResult describes the processing of one file
type FileResult struct {
	Path           string
	Outcome        Outcome
	Reason         string // why a file was skipped
	Functions      int
	FunctionErrors int
	Err            error
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	RunID            string        `json:"run_id"`
	FilesIndexed     int           `json:"files_indexed"`
	FilesSkipped     int           `json:"files_skipped"`
	FilesFailed      int           `json:"files_failed"`
	FilesPruned      int           `json:"files_pruned"`
	FunctionsIndexed int           `json:"functions_indexed"`
	FunctionErrors   int           `json:"function_errors"`
	Duration         time.Duration `json:"duration_ns"`
	ErrorMessages    []string      `json:"errors"`
}

// FilesProcessed returns the number of files that went through the protocol
func (s *Statistics) FilesProcessed() int {
	return s.FilesIndexed + s.FilesSkipped + s.FilesFailed
}

func (s *Statistics) add(r FileResult) {
	switch r.Outcome {
	case OutcomeIndexed:
		s.FilesIndexed++
	case OutcomeSkipped:
		s.FilesSkipped++
	case OutcomeFailed:
		s.FilesFailed++
	}
	s.FunctionsIndexed += r.Functions
	s.FunctionErrors += r.FunctionErrors
	if r.Err != nil {
		s.ErrorMessages = append(s.ErrorMessages, fmt.Sprintf("%s: %v", r.Path, r.Err))
	}
}

// Config wires the orchestrator's collaborators. Zero values get defaults.
type Config struct {
	Parsers *parser.Registry
	Walk    WalkOptions
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Orchestrator drives file discovery and the per-file indexing protocol
type Orchestrator struct {
	graph    *graph.Store
	detector *detector.Detector
	indexer  *Indexer
	batch    *graph.Batch
	parsers  *parser.Registry
	walker   *Walker
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	lock IndexLock
}

// NewOrchestrator creates an orchestrator over g
func NewOrchestrator(g *graph.Store, cfg Config) *Orchestrator {
	if cfg.Parsers == nil {
		cfg.Parsers = parser.DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		graph:    g,
		detector: detector.New(g),
		indexer:  New(g, cfg.Logger),
		batch:    graph.NewBatch(g),
		parsers:  cfg.Parsers,
		walker:   NewWalker(cfg.Walk),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Indexing reports whether a run is in progress
func (o *Orchestrator) Indexing() bool {
	return o.lock.Held()
}

// IndexProject walks root and runs every candidate file through IndexFile,
// one at a time in walk order. Statistics are returned even when the run is
// aborted. Store unavailability stops the run with a single error wrapping
// ErrStoreUnavailable; a concurrent call returns ErrIndexInProgress.
func (o *Orchestrator) IndexProject(ctx context.Context, root string, opts Options) (*Statistics, error) {
	if !o.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer o.lock.Release()

	start := time.Now()
	stats := &Statistics{
		RunID:         uuid.NewString(),
		ErrorMessages: make([]string, 0),
	}
	logger := o.logger.With(slog.String("run_id", stats.RunID))

	err := o.run(ctx, logger, root, opts, stats)

	stats.Duration = time.Since(start)
	result := telemetry.ResultOK
	if err != nil {
		result = telemetry.ResultAborted
		stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
		logger.Error("indexing run aborted", slog.String("error", err.Error()))
	}
	o.metrics.Run(result, stats.Duration.Seconds())

	logger.Info("indexing run finished",
		slog.Int("indexed", stats.FilesIndexed),
		slog.Int("skipped", stats.FilesSkipped),
		slog.Int("failed", stats.FilesFailed),
		slog.Int("pruned", stats.FilesPruned),
		slog.Int("functions", stats.FunctionsIndexed),
		slog.Int("function_errors", stats.FunctionErrors),
		slog.Duration("duration", stats.Duration))

	return stats, err
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, root string, opts Options, stats *Statistics) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}

	if err := o.graph.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	files, err := o.walker.Walk(ctx, absRoot)
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}
	logger.Info("indexing started",
		slog.String("root", absRoot),
		slog.Int("candidates", len(files)),
		slog.Bool("force", opts.Force),
		slog.Bool("batch", opts.Batch))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := o.indexFile(ctx, logger, path, opts)
		if err != nil {
			// Reported once, as the run's error
			res.Err = nil
			stats.add(res)
			return err
		}
		stats.add(res)
	}

	if opts.Prune {
		pruned, err := o.prune(ctx, logger, absRoot)
		stats.FilesPruned = pruned
		if err != nil {
			return err
		}
	}
	return nil
}

// IndexFile runs the per-file protocol for one path. Per-file failures are
// reported on the FileResult; the error return is reserved for store
// unavailability, which wraps ErrStoreUnavailable.
func (o *Orchestrator) IndexFile(ctx context.Context, path string, opts Options) (FileResult, error) {
	return o.indexFile(ctx, o.logger, path, opts)
}

func (o *Orchestrator) indexFile(ctx context.Context, logger *slog.Logger, path string, opts Options) (FileResult, error) {
	res, err := o.processFile(ctx, logger, path, opts)
	o.metrics.File(string(res.Outcome))
	if res.Outcome == OutcomeFailed && err == nil {
		logger.Warn("failed to index file",
			slog.String("file", path),
			slog.String("error", res.Err.Error()))
	}
	return res, err
}

func (o *Orchestrator) processFile(ctx context.Context, logger *slog.Logger, path string, opts Options) (FileResult, error) {
	res := FileResult{Path: path}

	// fail classifies err as fatal or as a file-level failure
	fail := func(step string, err error) (FileResult, error) {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("%s: %w", step, err)
		if isUnavailable(err) {
			if errors.Is(err, ErrStoreUnavailable) {
				return res, err
			}
			return res, fmt.Errorf("%w: %s %s: %w", ErrStoreUnavailable, step, path, err)
		}
		return res, nil
	}
	skip := func(reason string) (FileResult, error) {
		res.Outcome = OutcomeSkipped
		res.Reason = reason
		logger.Debug("skipped file", slog.String("file", path), slog.String("reason", reason))
		return res, nil
	}

	// 1. Parser selection
	p := o.parsers.For(path)
	if p == nil {
		return skip("unsupported")
	}

	// 2. Read
	content, err := os.ReadFile(path)
	if err != nil {
		return fail("read", err)
	}

	// 3. Change detection
	if !opts.Force {
		changed, err := o.detector.ShouldReindex(ctx, path, content)
		if err != nil {
			return fail("change detection", err)
		}
		if !changed {
			return skip("unchanged")
		}
	}

	// 4. Clear stale data
	if !opts.NoDelete {
		if _, err := o.graph.DeleteFileData(ctx, path); err != nil {
			return fail("delete stale data", err)
		}
	}

	// 5. Parse and shape check
	parsed, err := p.Extract(ctx, path, content)
	if err != nil {
		return fail("parse", err)
	}
	if err := parsed.Validate(); err != nil {
		return fail("parse", fmt.Errorf("%w: %w", ErrInvalidParseResult, err))
	}
	if parsed.HasErrors() {
		logger.Debug("parsed with syntax errors",
			slog.String("file", path),
			slog.String("error", parsed.Errors[0].Error()))
	}

	// 6. Write functions and edges
	if opts.Batch {
		br, err := o.batch.IndexFunctions(ctx, parsed.Functions)
		o.metrics.Batch(err == nil)
		o.metrics.Functions(br.Indexed, br.Errors)
		res.Functions, res.FunctionErrors = br.Indexed, br.Errors
		if err != nil {
			return fail("batch", err)
		}
	} else {
		ir, err := o.indexer.Index(ctx, path, parsed.Functions)
		o.metrics.Functions(ir.Indexed, ir.Errors)
		res.Functions, res.FunctionErrors = ir.Indexed, ir.Errors
		if err != nil {
			return fail("index", err)
		}
	}

	// 7. Record fingerprint
	if err := o.graph.SetFileHash(ctx, path, detector.Fingerprint(content)); err != nil {
		return fail("record fingerprint", err)
	}

	res.Outcome = OutcomeIndexed
	logger.Debug("indexed file",
		slog.String("file", path),
		slog.Int("functions", res.Functions),
		slog.Int("function_errors", res.FunctionErrors))
	return res, nil
}

// prune clears graph data for recorded files under root that are gone from disk
func (o *Orchestrator) prune(ctx context.Context, logger *slog.Logger, root string) (int, error) {
	files, err := o.graph.IndexedFiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	paths := make([]string, 0, len(files))
	prefix := root + string(filepath.Separator)
	for path := range files {
		if path == root || strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	pruned := 0
	for _, path := range paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		n, err := o.graph.DeleteFileData(ctx, path)
		if err != nil {
			if isUnavailable(err) {
				return pruned, fmt.Errorf("%w: prune %s: %w", ErrStoreUnavailable, path, err)
			}
			logger.Warn("failed to prune file", slog.String("file", path), slog.String("error", err.Error()))
			continue
		}
		pruned++
		logger.Info("pruned deleted file", slog.String("file", path), slog.Int("functions", n))
	}
	return pruned, nil
}
