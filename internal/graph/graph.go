// Package graph persists function records, call edges and file fingerprints
// on top of a storage.Store and enumerates them with stateless cursors.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/pkg/types"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrFunctionNotFound is returned by GetFunction when no record exists
	ErrFunctionNotFound = errors.New("function not found")
	// ErrInvalidName is returned for names that cannot be used as keys
	ErrInvalidName = errors.New("invalid function name")
	// ErrCorruptRecord is returned when stored fields cannot be decoded
	ErrCorruptRecord = errors.New("corrupt function record")
)

// DefaultPageSize is the page size ListFunctions uses for each scan
const DefaultPageSize = 100

// Stats holds approximate graph counts
type Stats struct {
	FileCount     int
	FunctionCount int
	Timestamp     time.Time
}

// Store is the graph persistence layer
type Store struct {
	kv  storage.Store
	now func() time.Time
}

// New creates a graph store over kv
func New(kv storage.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Ping checks that the underlying store is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func checkName(name string) error {
	if !types.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// encodeFunction converts a record into hash fields
func encodeFunction(fn *types.Function) (map[string]string, error) {
	params := fn.Params
	if params == nil {
		params = []string{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return map[string]string{
		fieldFile:      fn.File,
		fieldLineStart: strconv.Itoa(fn.StartLine),
		fieldLineEnd:   strconv.Itoa(fn.EndLine),
		fieldParams:    string(encoded),
		fieldAsync:     strconv.FormatBool(fn.Async),
		fieldExported:  strconv.FormatBool(fn.Exported),
		fieldType:      string(fn.Type),
		fieldIndexedAt: fn.IndexedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// decodeFunction rebuilds a record from hash fields
func decodeFunction(name string, fields map[string]string) (*types.Function, error) {
	fn := &types.Function{
		Name: name,
		File: fields[fieldFile],
		Type: types.FunctionType(fields[fieldType]),
	}

	var err error
	if fn.StartLine, err = strconv.Atoi(fields[fieldLineStart]); err != nil {
		return nil, fmt.Errorf("%w: %s line_start: %v", ErrCorruptRecord, name, err)
	}
	if fn.EndLine, err = strconv.Atoi(fields[fieldLineEnd]); err != nil {
		return nil, fmt.Errorf("%w: %s line_end: %v", ErrCorruptRecord, name, err)
	}
	if err := json.Unmarshal([]byte(fields[fieldParams]), &fn.Params); err != nil {
		return nil, fmt.Errorf("%w: %s params: %v", ErrCorruptRecord, name, err)
	}
	// Flags default to false when missing or malformed
	fn.Async, _ = strconv.ParseBool(fields[fieldAsync])
	fn.Exported, _ = strconv.ParseBool(fields[fieldExported])
	if ts := fields[fieldIndexedAt]; ts != "" {
		if fn.IndexedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("%w: %s indexed_at: %v", ErrCorruptRecord, name, err)
		}
	}
	return fn, nil
}

// queueFunction adds a whole-record replacement of fn to p
func (s *Store) queueFunction(p storage.Pipeline, fn *types.Function) error {
	if err := fn.Validate(); err != nil {
		return fmt.Errorf("invalid function %q: %w", fn.Name, err)
	}
	if fn.IndexedAt.IsZero() {
		fn.IndexedAt = s.now()
	}
	fields, err := encodeFunction(fn)
	if err != nil {
		return err
	}
	key := FunctionKey(fn.Name)
	p.Del(key)
	p.HSet(key, fields)
	return nil
}

// queueCall adds both sides of a caller -> callee edge to p
func queueCall(p storage.Pipeline, caller, callee string) {
	p.SAdd(CallsKey(caller), callee)
	p.SAdd(CalledByKey(callee), caller)
}

// SetFunction replaces the function's record. Fields from an earlier record
// are never merged in. A zero IndexedAt is stamped with the current time.
func (s *Store) SetFunction(ctx context.Context, fn *types.Function) error {
	p := s.kv.Pipeline()
	if err := s.queueFunction(p, fn); err != nil {
		return err
	}
	return p.Exec(ctx)
}

// GetFunction returns the record for name, or ErrFunctionNotFound
func (s *Store) GetFunction(ctx context.Context, name string) (*types.Function, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	fields, err := s.kv.HGetAll(ctx, FunctionKey(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get function %s: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return decodeFunction(name, fields)
}

// AddFunctionCall records caller -> callee on both edge sets in one submission.
// Repeating an edge is a no-op.
func (s *Store) AddFunctionCall(ctx context.Context, caller, callee string) error {
	if err := checkName(caller); err != nil {
		return err
	}
	if err := checkName(callee); err != nil {
		return err
	}
	p := s.kv.Pipeline()
	queueCall(p, caller, callee)
	return p.Exec(ctx)
}

// GetFunctionCalls returns the names name calls. Empty when it has no edges.
func (s *Store) GetFunctionCalls(ctx context.Context, name string) ([]string, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.kv.SMembers(ctx, CallsKey(name))
}

// GetFunctionCallers returns the names that call name. Empty when it has no edges.
func (s *Store) GetFunctionCallers(ctx context.Context, name string) ([]string, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.kv.SMembers(ctx, CalledByKey(name))
}

// DeleteFileData removes every function recorded for path together with its
// outgoing edges, scrubbing each callee's caller set, then drops the file's
// fingerprint and metadata. Callers recorded by other files keep their edges
// into the deleted names; those belong to the calling file. Returns the
// number of function records deleted. Unknown paths are a no-op.
func (s *Store) DeleteFileData(ctx context.Context, path string) (int, error) {
	names, err := s.functionsInFile(ctx, path)
	if err != nil {
		return 0, err
	}

	p := s.kv.Pipeline()
	for _, name := range names {
		callees, err := s.kv.SMembers(ctx, CallsKey(name))
		if err != nil {
			return 0, fmt.Errorf("failed to read calls of %s: %w", name, err)
		}
		for _, callee := range callees {
			p.SRem(CalledByKey(callee), name)
		}
		p.Del(FunctionKey(name), CallsKey(name))
	}
	p.HDel(fileHashesKey, path)
	p.Del(FileKey(path))

	if err := p.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete data for %s: %w", path, err)
	}
	return len(names), nil
}

// functionsInFile scans every function record and keeps those owned by path
func (s *Store) functionsInFile(ctx context.Context, path string) ([]string, error) {
	all, err := s.ListFunctions(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range all {
		file, ok, err := s.kv.HGet(ctx, FunctionKey(name), fieldFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read file of %s: %w", name, err)
		}
		if ok && file == path {
			names = append(names, name)
		}
	}
	return names, nil
}

// GetAllFunctions returns one page of function names. Start with
// storage.CursorStart and feed back the returned cursor until it comes back
// as storage.CursorStart. Pages may hold fewer names than pageSize since
// edge-set keys share the scanned prefix.
func (s *Store) GetAllFunctions(ctx context.Context, cursor string, pageSize int) (string, []string, error) {
	next, keys, err := s.kv.Scan(ctx, cursor, functionPrefix, pageSize)
	if err != nil {
		return storage.CursorStart, nil, fmt.Errorf("failed to scan functions: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if name, ok := functionName(key); ok {
			names = append(names, name)
		}
	}
	return next, names, nil
}

// ListFunctions returns every function name, sorted
func (s *Store) ListFunctions(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	cursor := storage.CursorStart
	for {
		next, page, err := s.GetAllFunctions(ctx, cursor, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		names = append(names, page...)
		if next == storage.CursorStart {
			break
		}
		cursor = next
	}
	sort.Strings(names)
	return names, nil
}

// GetStats returns file and function counts. Edge sets are never counted.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.kv.HLen(gctx, fileHashesKey)
		if err != nil {
			return fmt.Errorf("failed to count files: %w", err)
		}
		stats.FileCount = n
		return nil
	})
	g.Go(func() error {
		names, err := s.ListFunctions(gctx)
		if err != nil {
			return err
		}
		stats.FunctionCount = len(names)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Timestamp = s.now()
	return stats, nil
}

// GetFileHash returns the fingerprint recorded for path
func (s *Store) GetFileHash(ctx context.Context, path string) (string, bool, error) {
	hash, ok, err := s.kv.HGet(ctx, fileHashesKey, path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read fingerprint for %s: %w", path, err)
	}
	return hash, ok, nil
}

// SetFileHash records path's fingerprint and indexing time in one submission
func (s *Store) SetFileHash(ctx context.Context, path, hash string) error {
	p := s.kv.Pipeline()
	p.HSet(fileHashesKey, map[string]string{path: hash})
	p.HSet(FileKey(path), map[string]string{fieldIndexedAt: s.now().UTC().Format(time.RFC3339Nano)})
	if err := p.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record fingerprint for %s: %w", path, err)
	}
	return nil
}

// FileIndexedAt returns when path was last indexed
func (s *Store) FileIndexedAt(ctx context.Context, path string) (time.Time, bool, error) {
	raw, ok, err := s.kv.HGet(ctx, FileKey(path), fieldIndexedAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid indexed_at for %s: %w", path, err)
	}
	return ts, true, nil
}

// IndexedFiles returns every recorded path with its fingerprint
func (s *Store) IndexedFiles(ctx context.Context) (map[string]string, error) {
	files, err := s.kv.HGetAll(ctx, fileHashesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	return files, nil
}
