package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderAllocationAllocateAndRevert(t *testing.T) {
	o := NewOrderAllocation("OUT-1")

	o, _, err := o.Allocate(testMeta, "LPN-A", "SKU-1", 6)
	require.NoError(t, err)
	o, _, err = o.Allocate(testMeta, "LPN-B", "SKU-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 10, o.AllocatedQuantity("SKU-1"))

	before := o
	o, events, err := o.RevertLpn(testMeta, "LPN-A", "voided")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 4, o.AllocatedQuantity("SKU-1"))
	assert.Equal(t, 10, before.AllocatedQuantity("SKU-1"), "previous state is untouched")

	_, events, err = o.RevertLpn(testMeta, "LPN-Z", "voided")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOrderAllocationDispatch(t *testing.T) {
	o, events, err := NewOrderAllocation("OUT-1").Dispatch(testMeta, []string{"LPN-B", "LPN-A"})
	require.NoError(t, err)
	assert.True(t, o.Dispatched)
	assert.Equal(t, []string{"LPN-A", "LPN-B"}, events[0].(OrderDispatched).LpnIDs)

	_, _, err = o.Dispatch(testMeta, []string{"LPN-C"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = o.Allocate(testMeta, "LPN-C", "SKU-1", 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = NewOrderAllocation("OUT-2").Dispatch(testMeta, nil)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadOrderAllocation(t *testing.T) {
	o, allocated, err := NewOrderAllocation("OUT-1").Allocate(testMeta, "LPN-A", "SKU-1", 6)
	require.NoError(t, err)
	_, reverted, err := o.RevertLpn(testMeta, "LPN-A", "voided")
	require.NoError(t, err)

	batch, err := NewBatch(OrderStreamID("OUT-1"), 0, append(allocated, reverted...))
	require.NoError(t, err)
	batch.Events[0].Version, batch.Events[1].Version = 1, 2

	loaded, err := LoadOrderAllocation("OUT-1", batch.Events)
	require.NoError(t, err)
	assert.Empty(t, loaded.Allocations)
	assert.Equal(t, int64(2), loaded.Version)
}
