package memory

import (
	"context"
	"sync"
	"time"
)

// LockService grants TTL leases from a process-local table.
type LockService struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewLockService creates a lock service. now defaults to time.Now.
func NewLockService(now func() time.Time) *LockService {
	if now == nil {
		now = time.Now
	}
	return &LockService{locks: make(map[string]time.Time), now: now}
}

// AcquireLock takes key unless an unexpired lease holds it
func (l *LockService) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiry, held := l.locks[key]; held && now.Before(expiry) {
		return false, nil
	}
	l.locks[key] = now.Add(ttl)
	return true, nil
}

// ReleaseLock drops the lease. Releasing a free key is a no-op.
func (l *LockService) ReleaseLock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}

// Held reports whether key is currently leased
func (l *LockService) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.locks[key]
	return ok && l.now().Before(expiry)
}
