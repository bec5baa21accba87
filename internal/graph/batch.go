package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/callgraph-mcp/pkg/types"
)

// ErrBatchFailed is returned when a grouped submission is rejected as a whole
var ErrBatchFailed = errors.New("batch submission failed")

// BatchResult holds aggregate counts for one batch
type BatchResult struct {
	Indexed int
	Errors  int
}

// Batch groups many graph writes into a single pipeline submission
type Batch struct {
	store *Store
}

// NewBatch creates a batch writer over s
func NewBatch(s *Store) *Batch {
	return &Batch{store: s}
}

// IndexFunctions writes every record and all of its call edges in one
// submission. Records that fail validation are counted as errors and left
// out. If the submission fails the whole batch is reported as failed:
// Indexed is 0, Errors is len(fns), and the error wraps ErrBatchFailed.
func (b *Batch) IndexFunctions(ctx context.Context, fns []types.Function) (BatchResult, error) {
	var result BatchResult
	if len(fns) == 0 {
		return result, nil
	}

	p := b.store.kv.Pipeline()
	queued := 0
	for i := range fns {
		fn := &fns[i]
		if err := b.store.queueFunction(p, fn); err != nil {
			result.Errors++
			continue
		}
		for _, callee := range fn.UniqueCalls() {
			if !types.ValidName(callee) {
				continue
			}
			queueCall(p, fn.Name, callee)
		}
		queued++
	}

	if queued == 0 {
		return result, nil
	}

	if err := p.Exec(ctx); err != nil {
		return BatchResult{Indexed: 0, Errors: len(fns)}, fmt.Errorf("%w: %d functions: %w", ErrBatchFailed, len(fns), err)
	}

	result.Indexed = queued
	return result, nil
}

// DeleteFiles removes the fingerprint and file metadata of each path in one
// submission. Function records owned by those files are not touched; use
// Store.DeleteFileData for a full cleanup. Returns the number of paths.
func (b *Batch) DeleteFiles(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	p := b.store.kv.Pipeline()
	p.HDel(fileHashesKey, paths...)
	fileKeys := make([]string, len(paths))
	for i, path := range paths {
		fileKeys[i] = FileKey(path)
	}
	p.Del(fileKeys...)

	if err := p.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: delete %d files: %w", ErrBatchFailed, len(paths), err)
	}
	return len(paths), nil
}
