package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// EventStore keeps every stream in process. One mutex serializes writers, so
// SaveBatch is trivially atomic.
type EventStore struct {
	mu      sync.RWMutex
	streams map[string][]domain.EventRecord
}

// NewEventStore creates an empty store
func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]domain.EventRecord)}
}

// AppendEvents appends to one stream when it is at expectedVersion
func (s *EventStore) AppendEvents(ctx context.Context, streamID string, expectedVersion int64, events []domain.EventRecord) error {
	return s.SaveBatch(ctx, []domain.EventStreamBatch{{
		StreamID:        streamID,
		ExpectedVersion: expectedVersion,
		Events:          events,
	}})
}

// SaveBatch checks every batch before writing any of them
func (s *EventStore) SaveBatch(ctx context.Context, batches []domain.EventStreamBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Versions as they would be after each batch, so two batches for one
	// stream chain correctly.
	pending := make(map[string]int64, len(batches))
	for _, b := range batches {
		if b.StreamID == "" {
			return fmt.Errorf("%w: empty stream id", domain.ErrInvalidValue)
		}
		current, ok := pending[b.StreamID]
		if !ok {
			current = int64(len(s.streams[b.StreamID]))
		}
		if current != b.ExpectedVersion {
			return &domain.ConflictError{StreamID: b.StreamID, Expected: b.ExpectedVersion, Actual: current}
		}
		pending[b.StreamID] = current + int64(len(b.Events))
	}

	for _, b := range batches {
		stream := s.streams[b.StreamID]
		for _, rec := range b.Events {
			rec.StreamID = b.StreamID
			rec.Version = int64(len(stream)) + 1
			rec.Data = slices.Clone(rec.Data)
			stream = append(stream, rec)
		}
		s.streams[b.StreamID] = stream
	}
	return nil
}

// GetEvents returns a copy of the stream in append order
func (s *EventStore) GetEvents(ctx context.Context, streamID string) ([]domain.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.streams[streamID]), nil
}

// Version returns the current version of a stream
func (s *EventStore) Version(streamID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.streams[streamID]))
}
