package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wms-platform/lpn-service/internal/domain"
)

func TestLockService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	locks := NewLockService(func() time.Time { return now })

	ok, err := locks.AcquireLock(ctx, "LPN:1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = locks.AcquireLock(ctx, "LPN:1", 30*time.Second)
	assert.False(t, ok, "held lock must not be granted twice")

	now = now.Add(31 * time.Second)
	ok, _ = locks.AcquireLock(ctx, "LPN:1", 30*time.Second)
	assert.True(t, ok, "expired lease is reclaimable")

	require.NoError(t, locks.ReleaseLock(ctx, "LPN:1"))
	require.NoError(t, locks.ReleaseLock(ctx, "LPN:1"))
	assert.False(t, locks.Held("LPN:1"))
}

func TestLockServiceGrantsOneWinner(t *testing.T) {
	locks := NewLockService(nil)
	var mu sync.Mutex
	winners := 0

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			ok, err := locks.AcquireLock(context.Background(), "LOC:A-01", time.Minute)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, winners)
}

func TestLpnSequenceIsUnique(t *testing.T) {
	seq := NewLpnSequence(0)
	var mu sync.Mutex
	seen := map[string]bool{}

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			id, err := seq.NextLpnID(context.Background())
			mu.Lock()
			seen[id] = true
			mu.Unlock()
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, 100)
	assert.True(t, seen["LPN0000000000000001"])
	assert.True(t, domain.IsLpnID("LPN0000000000000100"))
	assert.True(t, seen["LPN0000000000000100"])
}
