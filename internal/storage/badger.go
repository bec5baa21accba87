package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Badger key layout. Logical keys are registered under "k\x00<key>" so Scan
// can enumerate them in order without touching field or member entries.
const (
	badgerRegistry = "k\x00"
	badgerHash     = "h\x00"
	badgerSet      = "s\x00"
)

// BadgerConfig holds configuration for a Badger-backed store
type BadgerConfig struct {
	// Path is the directory for Badger files. Ignored when InMemory is true.
	Path     string
	InMemory bool
	// SyncWrites fsyncs every commit
	SyncWrites bool
	// Logger receives Badger's internal logging. Nil disables it.
	Logger *slog.Logger
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns defaults for a persistent store
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a config suitable for tests
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore implements Store on an embedded Badger database
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool

	stopGC chan struct{}
	gcDone sync.WaitGroup
}

// NewBadgerStore opens a Badger database with the given configuration
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent badger store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger database: %v", ErrUnavailable, err)
	}

	s := &BadgerStore{db: db, stopGC: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcDone.Add(1)
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// runGC triggers value log GC until Close is called
func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer s.gcDone.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite ends the loop once nothing is worth collecting
			for {
				if err := s.db.RunValueLogGC(ratio); err != nil {
					break
				}
			}
		}
	}
}

// Close stops GC and closes the database. Later calls fail with ErrUnavailable.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.stopGC)
	s.gcDone.Wait()
	return s.db.Close()
}

func (s *BadgerStore) checkOpen() error {
	if s.closed.Load() || s.db.IsClosed() {
		return ErrUnavailable
	}
	return nil
}

// Ping verifies the database is open
func (s *BadgerStore) Ping(ctx context.Context) error {
	return s.checkOpen()
}

func registryKey(key string) []byte {
	return []byte(badgerRegistry + key)
}

func hashPrefix(key string) []byte {
	return []byte(badgerHash + key + "\x00")
}

func setPrefix(key string) []byte {
	return []byte(badgerSet + key + "\x00")
}

// Hash operations

func (s *BadgerStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	return single(ctx, s, func(p Pipeline) { p.HSet(key, fields) })
}

func (s *BadgerStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	var value string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append(hashPrefix(key), field...))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value, found = string(raw), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("hget %s: %w", key, err)
	}
	return value, found, nil
}

func (s *BadgerStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	prefix := hashPrefix(key)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			fields[string(item.Key()[len(prefix):])] = string(raw)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return fields, nil
}

func (s *BadgerStore) HDel(ctx context.Context, key string, fields ...string) error {
	return single(ctx, s, func(p Pipeline) { p.HDel(key, fields...) })
}

func (s *BadgerStore) HLen(ctx context.Context, key string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		n = len(listKeys(txn, hashPrefix(key)))
		return nil
	})
	return n, err
}

// Set operations

func (s *BadgerStore) SAdd(ctx context.Context, key string, members ...string) error {
	return single(ctx, s, func(p Pipeline) { p.SAdd(key, members...) })
}

func (s *BadgerStore) SRem(ctx context.Context, key string, members ...string) error {
	return single(ctx, s, func(p Pipeline) { p.SRem(key, members...) })
}

func (s *BadgerStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	members := make([]string, 0)
	prefix := setPrefix(key)
	err := s.db.View(func(txn *badger.Txn) error {
		for _, k := range listKeys(txn, prefix) {
			members = append(members, string(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return members, nil
}

// Key operations

func (s *BadgerStore) Del(ctx context.Context, keys ...string) error {
	return single(ctx, s, func(p Pipeline) { p.Del(keys...) })
}

func (s *BadgerStore) Scan(ctx context.Context, cursor, prefix string, count int) (string, []string, error) {
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

	scanPrefix := registryKey(prefix)
	seek := scanPrefix
	if after != "" && bytes.Compare(registryKey(after), seek) > 0 {
		seek = registryKey(after)
	}

	keys := make([]string, 0, count)
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: scanPrefix})
		defer it.Close()
		for it.Seek(seek); it.ValidForPrefix(scanPrefix) && len(keys) < count; it.Next() {
			k := string(it.Item().Key()[len(badgerRegistry):])
			if after != "" && k <= after {
				continue
			}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return CursorStart, nil, fmt.Errorf("scan: %w", err)
	}

	if len(keys) < count {
		return CursorStart, keys, nil
	}
	return encodeCursor(keys[len(keys)-1]), keys, nil
}

// Pipeline returns a pipeline applied in a single Badger transaction
func (s *BadgerStore) Pipeline() Pipeline {
	return newPipeline(s.applyOps)
}

func (s *BadgerStore) applyOps(ctx context.Context, ops []op) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, o := range ops {
			if err := applyBadgerOp(txn, o); err != nil {
				return fmt.Errorf("apply %s: %w", o.key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applyBadgerOp(txn *badger.Txn, o op) error {
	switch o.kind {
	case opHSet:
		if len(o.fields) == 0 {
			return nil
		}
		prefix := hashPrefix(o.key)
		for field, value := range o.fields {
			if err := txn.Set(append(append([]byte(nil), prefix...), field...), []byte(value)); err != nil {
				return err
			}
		}
		return txn.Set(registryKey(o.key), []byte("h"))
	case opHDel:
		prefix := hashPrefix(o.key)
		for _, field := range o.members {
			if err := txn.Delete(append(append([]byte(nil), prefix...), field...)); err != nil {
				return err
			}
		}
		return dropIfEmpty(txn, o.key, prefix)
	case opSAdd:
		if len(o.members) == 0 {
			return nil
		}
		prefix := setPrefix(o.key)
		for _, m := range o.members {
			if err := txn.Set(append(append([]byte(nil), prefix...), m...), nil); err != nil {
				return err
			}
		}
		return txn.Set(registryKey(o.key), []byte("s"))
	case opSRem:
		prefix := setPrefix(o.key)
		for _, m := range o.members {
			if err := txn.Delete(append(append([]byte(nil), prefix...), m...)); err != nil {
				return err
			}
		}
		return dropIfEmpty(txn, o.key, prefix)
	case opDel:
		for _, key := range o.members {
			for _, prefix := range [][]byte{hashPrefix(key), setPrefix(key)} {
				for _, k := range listKeys(txn, prefix) {
					if err := txn.Delete(k); err != nil {
						return err
					}
				}
			}
			if err := txn.Delete(registryKey(key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// dropIfEmpty removes the registry entry once a hash or set has no entries left
func dropIfEmpty(txn *badger.Txn, key string, prefix []byte) error {
	if len(listKeys(txn, prefix)) > 0 {
		return nil
	}
	return txn.Delete(registryKey(key))
}

// listKeys returns copies of every key under prefix. The iterator is closed
// before returning; Badger allows only one open iterator per update txn.
func listKeys(txn *badger.Txn, prefix []byte) [][]byte {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}
