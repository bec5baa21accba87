package indexer

import "sync/atomic"

// IndexLock is a non-blocking guard allowing one indexing run at a time.
// A second caller is turned away instead of queued.
type IndexLock struct {
	running atomic.Bool
}

// TryAcquire takes the lock if it is free and reports whether it did
func (l *IndexLock) TryAcquire() bool {
	return l.running.CompareAndSwap(false, true)
}

// Release frees the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.running.Store(false)
}

// Held reports whether a run is in progress
func (l *IndexLock) Held() bool {
	return l.running.Load()
}
