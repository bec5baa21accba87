// Package storage provides the key-value engines the call graph is stored in.
//
// The graph layer needs a small Redis-like surface: hashes (one map of
// fields per key), sets, per-key delete, cursor-based key enumeration and
// pipelined batches. Store describes that surface; two engines implement it:
//
//   - SQLiteStore (default): tables kv_hash and kv_set, one row per field or
//     member. The schema is versioned by ApplyMigrations.
//   - BadgerStore: an embedded LSM store; keys are registered under a
//     dedicated prefix so Scan walks logical keys in order.
//
// # Basic Usage
//
//	store, err := storage.Open(storage.Options{Engine: "sqlite", Path: "graph.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	_ = store.HSet(ctx, "function:main", map[string]string{"file": "main.go"})
//	_ = store.SAdd(ctx, "function:main:calls", "run")
//
// # Pipelines
//
// A pipeline groups many writes into one submission, applied in a single
// transaction:
//
//	p := store.Pipeline()
//	p.Del("function:main")
//	p.HSet("function:main", fields)
//	p.SAdd("function:main:calls", "run")
//	if err := p.Exec(ctx); err != nil {
//	    // nothing from this pipeline should be treated as committed
//	}
//
// # Scanning
//
// Scan is stateless: the cursor encodes the last key returned, so callers
// may pause for any length of time between pages. CursorStart ("0") begins
// the enumeration and is returned again when it is complete.
//
//	cursor := storage.CursorStart
//	for {
//	    next, keys, err := store.Scan(ctx, cursor, "function:", 100)
//	    ...
//	    if next == storage.CursorStart {
//	        break
//	    }
//	    cursor = next
//	}
//
// # Availability
//
// Every operation on a closed store, and any failure to open one, reports
// ErrUnavailable so callers can tell a lost store apart from bad data.
package storage
