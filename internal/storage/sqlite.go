package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"
)

// defaultScanCount is the page size used when Scan is called with count <= 0
const defaultScanCount = 10

// SQLiteStore implements Store on top of two SQLite tables, one row per
// hash field and one row per set member
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrUnavailable, err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection. Later calls fail with ErrUnavailable.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	return nil
}

// Ping verifies the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Hash operations

func (s *SQLiteStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	return single(ctx, s, func(p Pipeline) { p.HSet(key, fields) })
}

func (s *SQLiteStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM kv_hash WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	fields := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		fields[field] = value
	}
	return fields, rows.Err()
}

func (s *SQLiteStore) HDel(ctx context.Context, key string, fields ...string) error {
	return single(ctx, s, func(p Pipeline) { p.HDel(key, fields...) })
}

func (s *SQLiteStore) HLen(ctx context.Context, key string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kv_hash WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("hlen %s: %w", key, err)
	}
	return n, nil
}

// Set operations

func (s *SQLiteStore) SAdd(ctx context.Context, key string, members ...string) error {
	return single(ctx, s, func(p Pipeline) { p.SAdd(key, members...) })
}

func (s *SQLiteStore) SRem(ctx context.Context, key string, members ...string) error {
	return single(ctx, s, func(p Pipeline) { p.SRem(key, members...) })
}

func (s *SQLiteStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM kv_set WHERE key = ? ORDER BY member`, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	members := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Key operations

func (s *SQLiteStore) Del(ctx context.Context, keys ...string) error {
	return single(ctx, s, func(p Pipeline) { p.Del(keys...) })
}

func (s *SQLiteStore) Scan(ctx context.Context, cursor, prefix string, count int) (string, []string, error) {
	if err := s.checkOpen(); err != nil {
		return CursorStart, nil, err
	}
	after, err := decodeCursor(cursor)
	if err != nil {
		return CursorStart, nil, err
	}
	if count <= 0 {
		count = defaultScanCount
	}

	query := `
		SELECT key FROM (
			SELECT key FROM kv_hash
			UNION
			SELECT key FROM kv_set
		)
		WHERE key > ? AND substr(key, 1, ?) = ?
		ORDER BY key
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, after, utf8.RuneCountInString(prefix), prefix, count)
	if err != nil {
		return CursorStart, nil, fmt.Errorf("scan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make([]string, 0, count)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return CursorStart, nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return CursorStart, nil, err
	}

	if len(keys) < count {
		return CursorStart, keys, nil
	}
	return encodeCursor(keys[len(keys)-1]), keys, nil
}

// Pipeline returns a pipeline applied in a single transaction
func (s *SQLiteStore) Pipeline() Pipeline {
	return newPipeline(s.applyOps)
}

const (
	sqlHSet = `INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
		ON CONFLICT(key, field) DO UPDATE SET value = excluded.value`
	sqlHDel    = `DELETE FROM kv_hash WHERE key = ? AND field = ?`
	sqlSAdd    = `INSERT INTO kv_set (key, member) VALUES (?, ?) ON CONFLICT(key, member) DO NOTHING`
	sqlSRem    = `DELETE FROM kv_set WHERE key = ? AND member = ?`
	sqlDelHash = `DELETE FROM kv_hash WHERE key = ?`
	sqlDelSet  = `DELETE FROM kv_set WHERE key = ?`
)

// applyOps runs all ops in one transaction with prepared statements
func (s *SQLiteStore) applyOps(ctx context.Context, ops []op) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, st := range stmts {
			_ = st.Close()
		}
	}()
	exec := func(query string, args ...any) error {
		st, ok := stmts[query]
		if !ok {
			prepared, perr := tx.PrepareContext(ctx, query)
			if perr != nil {
				return perr
			}
			stmts[query] = prepared
			st = prepared
		}
		_, execErr := st.ExecContext(ctx, args...)
		return execErr
	}

	for _, o := range ops {
		if err := applyOp(o, exec); err != nil {
			return fmt.Errorf("apply %s: %w", o.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applyOp(o op, exec func(query string, args ...any) error) error {
	switch o.kind {
	case opHSet:
		for field, value := range o.fields {
			if err := exec(sqlHSet, o.key, field, value); err != nil {
				return err
			}
		}
	case opHDel:
		for _, field := range o.members {
			if err := exec(sqlHDel, o.key, field); err != nil {
				return err
			}
		}
	case opSAdd:
		for _, m := range o.members {
			if err := exec(sqlSAdd, o.key, m); err != nil {
				return err
			}
		}
	case opSRem:
		for _, m := range o.members {
			if err := exec(sqlSRem, o.key, m); err != nil {
				return err
			}
		}
	case opDel:
		for _, key := range o.members {
			if err := exec(sqlDelHash, key); err != nil {
				return err
			}
			if err := exec(sqlDelSet, key); err != nil {
				return err
			}
		}
	}
	return nil
}
