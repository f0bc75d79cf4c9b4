package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wms-platform/lpn-service/internal/domain"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockServiceAcquireAndRelease(t *testing.T) {
	mr, client := setupMiniRedis(t)
	ctx := context.Background()
	locks := NewLockService(client, nil, nil)

	ok, err := locks.AcquireLock(ctx, "LPN:1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists(lockKeyPrefix+"LPN:1"))
	assert.Equal(t, 30*time.Second, mr.TTL(lockKeyPrefix+"LPN:1"))

	ok, err = locks.AcquireLock(ctx, "LPN:1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be granted twice")

	require.NoError(t, locks.ReleaseLock(ctx, "LPN:1"))
	assert.False(t, mr.Exists(lockKeyPrefix+"LPN:1"))
	require.NoError(t, locks.ReleaseLock(ctx, "LPN:1"), "release is idempotent")
}

func TestLockServiceLeaseExpires(t *testing.T) {
	mr, client := setupMiniRedis(t)
	ctx := context.Background()
	first := NewLockService(client, nil, nil)
	second := NewLockService(client, nil, nil)

	ok, err := first.AcquireLock(ctx, "LOC:A-01", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = second.AcquireLock(ctx, "LOC:A-01", 30*time.Second)
	assert.False(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = second.AcquireLock(ctx, "LOC:A-01", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is reclaimable")

	// The first owner's late release must leave the new lease in place.
	require.NoError(t, first.ReleaseLock(ctx, "LOC:A-01"))
	assert.True(t, mr.Exists(lockKeyPrefix+"LOC:A-01"))

	require.NoError(t, second.ReleaseLock(ctx, "LOC:A-01"))
	assert.False(t, mr.Exists(lockKeyPrefix+"LOC:A-01"))
}

func TestLockServiceReleaseOfForeignKeyIsNoop(t *testing.T) {
	mr, client := setupMiniRedis(t)
	ctx := context.Background()
	owner := NewLockService(client, nil, nil)
	other := NewLockService(client, nil, nil)

	ok, err := owner.AcquireLock(ctx, "ORDER:OUT-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, other.ReleaseLock(ctx, "ORDER:OUT-1"))
	assert.True(t, mr.Exists(lockKeyPrefix+"ORDER:OUT-1"))
}

func TestLockServiceGrantsOneWinner(t *testing.T) {
	_, client := setupMiniRedis(t)
	var winners atomic.Int32

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		locks := NewLockService(client, nil, nil)
		g.Go(func() error {
			ok, err := locks.AcquireLock(context.Background(), "LOC:B-02-01", time.Minute)
			if ok {
				winners.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), winners.Load())
}

func TestLockServiceRejectsNonPositiveTTL(t *testing.T) {
	_, client := setupMiniRedis(t)
	_, err := NewLockService(client, nil, nil).AcquireLock(context.Background(), "LPN:1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestLockServiceUnavailable(t *testing.T) {
	mr, client := setupMiniRedis(t)
	locks := NewLockService(client, nil, nil)
	mr.Close()

	_, err := locks.AcquireLock(context.Background(), "LPN:1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestLpnSequence(t *testing.T) {
	mr, client := setupMiniRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(lpnSequenceKey, "41"))

	seq := NewLpnSequence(client)
	id, err := seq.NextLpnID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LPN0000000000000042", id)

	id, err = seq.NextLpnID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LPN0000000000000043", id)
}
