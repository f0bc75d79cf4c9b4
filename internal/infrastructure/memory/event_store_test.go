package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/lpn-service/internal/domain"
)

func records(n int) []domain.EventRecord {
	out := make([]domain.EventRecord, n)
	for i := range out {
		out[i] = domain.EventRecord{EventType: "wms.lpn.count-reported", Data: json.RawMessage(`{}`)}
	}
	return out
}

func TestAppendEventsVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()

	require.NoError(t, s.AppendEvents(ctx, "lpn-A", 0, records(2)))
	assert.Equal(t, int64(2), s.Version("lpn-A"))

	require.NoError(t, s.AppendEvents(ctx, "lpn-A", 2, records(1)))
	events, err := s.GetEvents(ctx, "lpn-A")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Version)
		assert.Equal(t, "lpn-A", e.StreamID)
	}

	err = s.AppendEvents(ctx, "lpn-A", 2, records(1))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int64(3), conflict.Actual)
	assert.Equal(t, int64(3), s.Version("lpn-A"))
}

func TestGetEventsOfMissingStreamIsEmpty(t *testing.T) {
	events, err := NewEventStore().GetEvents(context.Background(), "lpn-none")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSaveBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()
	require.NoError(t, s.AppendEvents(ctx, "location-A-01", 0, records(1)))

	err := s.SaveBatch(ctx, []domain.EventStreamBatch{
		{StreamID: "lpn-A", ExpectedVersion: 0, Events: records(2)},
		{StreamID: "location-A-01", ExpectedVersion: 0, Events: records(1)},
	})
	assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict))
	assert.Equal(t, int64(0), s.Version("lpn-A"))
	assert.Equal(t, int64(1), s.Version("location-A-01"))

	require.NoError(t, s.SaveBatch(ctx, []domain.EventStreamBatch{
		{StreamID: "lpn-A", ExpectedVersion: 0, Events: records(2)},
		{StreamID: "location-A-01", ExpectedVersion: 1, Events: records(1)},
	}))
	assert.Equal(t, int64(2), s.Version("lpn-A"))
	assert.Equal(t, int64(2), s.Version("location-A-01"))
}

func TestSaveBatchChainsBatchesForOneStream(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()

	require.NoError(t, s.SaveBatch(ctx, []domain.EventStreamBatch{
		{StreamID: "order-1", ExpectedVersion: 0, Events: records(1)},
		{StreamID: "order-1", ExpectedVersion: 1, Events: records(1)},
	}))
	assert.Equal(t, int64(2), s.Version("order-1"))

	err := s.SaveBatch(ctx, []domain.EventStreamBatch{
		{StreamID: "order-1", ExpectedVersion: 2, Events: records(1)},
		{StreamID: "order-1", ExpectedVersion: 2, Events: records(1)},
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int64(2), s.Version("order-1"))
}

func TestGetEventsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()
	require.NoError(t, s.AppendEvents(ctx, "lpn-A", 0, records(1)))

	events, _ := s.GetEvents(ctx, "lpn-A")
	events[0].EventType = "tampered"

	again, _ := s.GetEvents(ctx, "lpn-A")
	assert.Equal(t, "wms.lpn.count-reported", again[0].EventType)
}
