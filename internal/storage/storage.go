package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrUnavailable is returned when the store cannot be reached (closed,
	// failed to open, or the engine refused the connection)
	ErrUnavailable = errors.New("store unavailable")
	// ErrUnknownEngine is returned by Open for an unsupported engine name
	ErrUnknownEngine = errors.New("unknown storage engine")
	// ErrInvalidCursor is returned by Scan when the cursor cannot be decoded
	ErrInvalidCursor = errors.New("invalid scan cursor")
)

// CursorStart begins a scan and is returned again when the scan is complete
const CursorStart = "0"

// Engine names accepted by Open
const (
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
)

// Store is the key-value surface the graph layer is built on: hash fields,
// sets, per-key delete, stateless cursor enumeration and pipelined batches.
//
// Every key is either a hash or a set. A hash or set with no remaining
// fields/members does not exist.
type Store interface {
	// Hash operations
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HLen(ctx context.Context, key string) (int, error)

	// Set operations
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Key operations
	Del(ctx context.Context, keys ...string) error
	// Scan returns up to count keys starting with prefix, after the
	// position encoded in cursor. The returned cursor is CursorStart once
	// the enumeration is complete. Cursors carry no server-side state.
	Scan(ctx context.Context, cursor, prefix string, count int) (string, []string, error)

	// Pipeline queues writes for a single grouped submission
	Pipeline() Pipeline

	Ping(ctx context.Context) error
	Close() error
}

// Pipeline collects write commands and submits them together on Exec.
// Engines apply a pipeline in one transaction; if Exec fails none of the
// queued commands should be assumed applied.
type Pipeline interface {
	HSet(key string, fields map[string]string)
	HDel(key string, fields ...string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
	Del(keys ...string)
	Len() int
	Exec(ctx context.Context) error
}

// Options selects and configures a storage engine
type Options struct {
	Engine string // "sqlite" (default) or "badger"
	// Path is the SQLite database file or the Badger directory.
	// Empty means an in-memory store.
	Path   string
	Logger *slog.Logger
}

// Open creates the store described by opts
func Open(opts Options) (Store, error) {
	switch opts.Engine {
	case "", EngineSQLite:
		path := opts.Path
		if path == "" {
			path = ":memory:"
		}
		return NewSQLiteStore(path)
	case EngineBadger:
		cfg := DefaultBadgerConfig()
		if opts.Path == "" {
			cfg = InMemoryBadgerConfig()
		}
		cfg.Path = opts.Path
		cfg.Logger = opts.Logger
		return NewBadgerStore(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, opts.Engine)
	}
}
