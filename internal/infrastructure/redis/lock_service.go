package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
	"github.com/wms-platform/lpn-service/pkg/resilience"
)

// lockKeyPrefix namespaces lease keys inside a shared Redis
const lockKeyPrefix = "lpn-service:lock:"

// releaseScript deletes the key only while it still carries our token, so an
// expired lease re-acquired by another owner is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockService grants leases with SET NX PX. Each acquired key remembers the
// owner token written for it so release never removes a lease taken over by
// another process after expiry.
type LockService struct {
	client  goredis.Cmdable
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger

	mu     sync.Mutex
	tokens map[string]string
}

// NewLockService wraps client. m may be nil.
func NewLockService(client goredis.Cmdable, logger *logging.Logger, m *metrics.Metrics) *LockService {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("redis-lock-service")
	return &LockService{
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("redis-locks"), logger, m),
		logger:  logger,
		tokens:  make(map[string]string),
	}
}

// AcquireLock makes a single SET NX attempt
func (l *LockService) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("%w: lock ttl must be positive", domain.ErrInvalidValue)
	}
	token := uuid.NewString()

	ok, err := resilience.Execute(ctx, l.breaker, func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	})
	if err != nil {
		return false, unavailable("acquire", key, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// ReleaseLock deletes the lease if this instance still owns it. Releasing a
// key that was never acquired here is a no-op.
func (l *LockService) ReleaseLock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	deleted, err := resilience.Execute(ctx, l.breaker, func(ctx context.Context) (int64, error) {
		return releaseScript.Run(ctx, l.client, []string{lockKeyPrefix + key}, token).Int64()
	})
	if err != nil {
		return unavailable("release", key, err)
	}
	if deleted == 0 {
		l.logger.WithContext(ctx).Warn("Lock lease expired before release", "lockKey", key)
	}
	return nil
}

func unavailable(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: failed to %s lock %s: %v", domain.ErrStorageUnavailable, op, key, err)
}

var _ domain.LockService = (*LockService)(nil)
