package application

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
)

// DefaultLockTTL bounds how long a crashed command can hold a resource.
const DefaultLockTTL = 30 * time.Second

// lockScope holds the keys one command acquired. Keys are taken in the global
// order LPN, LOC, ORDER with ids sorted inside each class, and are released
// in reverse order.
type lockScope struct {
	locks   domain.LockService
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
	held    []string
}

// LockPlan lists the resources one acquisition step needs.
type LockPlan struct {
	LpnIDs        []string
	LocationCodes []string
	OrderIDs      []string
}

// Keys renders the plan in acquisition order without duplicates.
func (p LockPlan) Keys() []string {
	var keys []string
	for _, class := range []struct {
		ids []string
		key func(string) string
	}{
		{p.LpnIDs, domain.LpnLockKey},
		{p.LocationCodes, domain.LocationLockKey},
		{p.OrderIDs, domain.OrderLockKey},
	} {
		ids := slices.Clone(class.ids)
		slices.Sort(ids)
		for _, id := range slices.Compact(ids) {
			if id != "" {
				keys = append(keys, class.key(id))
			}
		}
	}
	return keys
}

// acquire takes every key in plan with a single attempt each. On the first
// key that is held elsewhere nothing further is attempted and the caller's
// deferred release frees what was already taken.
func (s *lockScope) acquire(ctx context.Context, plan LockPlan) error {
	for _, key := range plan.Keys() {
		if slices.Contains(s.held, key) {
			continue
		}
		ok, err := s.locks.AcquireLock(ctx, key, s.ttl)
		if err != nil {
			return err
		}
		s.metrics.RecordLockAcquisition(lockClass(key), ok)
		if !ok {
			s.logger.LockContention(ctx, key)
			return &LockTimeoutError{Key: key}
		}
		s.held = append(s.held, key)
	}
	return nil
}

// release frees held keys in reverse acquisition order. It runs even when the
// command context is already cancelled.
func (s *lockScope) release(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.held) - 1; i >= 0; i-- {
		if err := s.locks.ReleaseLock(ctx, s.held[i]); err != nil {
			s.logger.WithContext(ctx).Error("Failed to release lock", "lockKey", s.held[i], "error", err)
		}
	}
	s.held = nil
}

func lockClass(key string) string {
	class, _, _ := strings.Cut(key, ":")
	return class
}
