package memory

import (
	"context"
	"sync"
	"time"
)

// lockEntry is a held lock and the moment it lapses. The TTL ensures that a
// job whose goroutine died without releasing its lock does not block
// identical submissions forever.
type lockEntry struct {
	expiresAt time.Time
}

// LockManager provides in-memory named locks with TTL-based expiration. The
// job service takes one per region/config digest while a coverage job runs,
// so a second identical submission is refused instead of computing the same
// cells twice.
//
// Only one process sees these locks. Running several server instances would
// need a shared store (Redis SET NX with a TTL).
//
// Go Learning Note — Channels for Signaling:
// The `stop` field is a `chan struct{}` — an empty struct channel used purely
// for signaling. `struct{}` occupies zero bytes, making it the most efficient
// signal type. close(stop) wakes every goroutine waiting on it, and a closed
// channel returns immediately on receive.
type LockManager struct {
	mu       sync.RWMutex
	locks    map[string]*lockEntry
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLockManager creates a LockManager and starts a background goroutine that
// sweeps expired locks every interval (one second when interval <= 0).
//
// Go Learning Note — Background Goroutines:
// Always provide a way to stop background goroutines (Stop here) to prevent
// goroutine leaks in tests and on shutdown.
func NewLockManager(interval time.Duration) *LockManager {
	if interval <= 0 {
		interval = time.Second
	}
	lm := &LockManager{
		locks: make(map[string]*lockEntry),
		stop:  make(chan struct{}),
	}
	go lm.cleanupExpiredLocks(interval)
	return lm
}

// AcquireLock attempts to take key for ttl. Returns (true, nil) if the lock
// was acquired and (false, nil) if someone else holds it. An expired lock is
// treated as free.
//
// This is the Go equivalent of Redis's `SET key value NX EX ttl`.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if entry, exists := lm.locks[key]; exists && time.Now().Before(entry.expiresAt) {
		return false, nil
	}

	lm.locks[key] = &lockEntry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// ReleaseLock releases a lock before its TTL expires. Releasing a free key is
// not an error.
func (lm *LockManager) ReleaseLock(ctx context.Context, key string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	delete(lm.locks, key)
	return nil
}

// cleanupExpiredLocks periodically removes locks that have passed their TTL.
//
// Go Learning Note — select Statement:
// select blocks until one of its cases can proceed. Here it waits for either
// the ticker (do cleanup) or the stop signal (exit), the idiomatic shape of a
// cancellable periodic task.
//
// Go Learning Note — Safe Map Deletion During Iteration:
// In Go, it's safe to delete map keys during a for-range loop over that map.
func (lm *LockManager) cleanupExpiredLocks(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			now := time.Now()
			for key, entry := range lm.locks {
				if now.After(entry.expiresAt) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() { close(lm.stop) })
}
