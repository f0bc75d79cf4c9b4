package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/internal/infrastructure/messaging"
	"github.com/wms-platform/lpn-service/pkg/logging"
	pkgmongo "github.com/wms-platform/lpn-service/pkg/mongodb"
	"github.com/wms-platform/lpn-service/pkg/outbox"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

// EventsCollection holds one document per event
const EventsCollection = "lpn_events"

type eventDocument struct {
	ID         string    `bson:"_id"`
	StreamID   string    `bson:"streamId"`
	StreamType string    `bson:"streamType"`
	Version    int64     `bson:"version"`
	EventType  string    `bson:"eventType"`
	Data       []byte    `bson:"data"`
	ActorID    string    `bson:"actorId,omitempty"`
	StationID  string    `bson:"stationId,omitempty"`
	OccurredAt time.Time `bson:"occurredAt"`
	StoredAt   time.Time `bson:"storedAt"`
}

func (d eventDocument) record() domain.EventRecord {
	return domain.EventRecord{
		StreamID:   d.StreamID,
		Version:    d.Version,
		EventType:  d.EventType,
		Data:       d.Data,
		ActorID:    d.ActorID,
		StationID:  d.StationID,
		OccurredAt: d.OccurredAt,
	}
}

// EventStore keeps event streams in MongoDB. Every write runs in a
// transaction, which needs a replica set. The unique (streamId, version)
// index turns a racing writer into a conflict.
type EventStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	outbox     outbox.Repository
	mapper     *messaging.EventMapper
	logger     *logging.Logger
	tracer     trace.Tracer
}

// EventStoreOption configures an EventStore
type EventStoreOption func(*EventStore)

// WithOutbox writes an outbox row per event in the same transaction.
func WithOutbox(repo outbox.Repository, mapper *messaging.EventMapper) EventStoreOption {
	return func(s *EventStore) {
		s.outbox = repo
		s.mapper = mapper
		if s.mapper == nil {
			s.mapper = messaging.NewEventMapper(nil)
		}
	}
}

// WithLogger sets the store logger
func WithLogger(logger *logging.Logger) EventStoreOption {
	return func(s *EventStore) { s.logger = logger }
}

func NewEventStore(db *mongo.Database, opts ...EventStoreOption) *EventStore {
	s := &EventStore{
		client:     db.Client(),
		collection: db.Collection(EventsCollection),
		logger:     logging.NewNop(),
		tracer:     otel.Tracer("lpn-service/mongodb"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("mongo-event-store")
	return s
}

// EnsureIndexes creates the stream position index
func (s *EventStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "streamId", Value: 1}, {Key: "version", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_stream_version"),
		},
		{
			Keys:    bson.D{{Key: "streamType", Value: 1}, {Key: "storedAt", Value: 1}},
			Options: options.Index().SetName("idx_streamType_storedAt"),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}
	return nil
}

func (s *EventStore) AppendEvents(ctx context.Context, streamID string, expectedVersion int64, events []domain.EventRecord) error {
	return s.SaveBatch(ctx, []domain.EventStreamBatch{{
		StreamID:        streamID,
		ExpectedVersion: expectedVersion,
		Events:          events,
	}})
}

// SaveBatch checks and writes every batch inside one transaction
func (s *EventStore) SaveBatch(ctx context.Context, batches []domain.EventStreamBatch) error {
	streams := make([]string, len(batches))
	for i, b := range batches {
		streams[i] = b.StreamID
	}
	_, err := tracing.TracedOperation(ctx, s.tracer, "mongodb.save_batch", func(ctx context.Context) (struct{}, error) {
		err := pkgmongo.WithTransaction(ctx, s.client, func(sessCtx mongo.SessionContext) error {
			return s.write(sessCtx, batches)
		})
		return struct{}{}, s.translate(err, batches)
	}, tracing.EventStoreSpanAttributes("mongodb", "insert", streams)...)
	return err
}

func (s *EventStore) write(sessCtx mongo.SessionContext, batches []domain.EventStreamBatch) error {
	storedAt := time.Now().UTC()
	pending := make(map[string]int64, len(batches))
	var docs []interface{}
	var committed []domain.EventRecord

	for _, b := range batches {
		if b.StreamID == "" {
			return fmt.Errorf("%w: empty stream id", domain.ErrInvalidValue)
		}
		current, ok := pending[b.StreamID]
		if !ok {
			v, err := s.currentVersion(sessCtx, b.StreamID)
			if err != nil {
				return err
			}
			current = v
		}
		if current != b.ExpectedVersion {
			return &domain.ConflictError{StreamID: b.StreamID, Expected: b.ExpectedVersion, Actual: current}
		}
		for _, rec := range b.Events {
			current++
			rec.StreamID = b.StreamID
			rec.Version = current
			docs = append(docs, eventDocument{
				ID:         messaging.EventID(rec),
				StreamID:   rec.StreamID,
				StreamType: domain.StreamType(rec.StreamID),
				Version:    rec.Version,
				EventType:  rec.EventType,
				Data:       rec.Data,
				ActorID:    rec.ActorID,
				StationID:  rec.StationID,
				OccurredAt: rec.OccurredAt.UTC(),
				StoredAt:   storedAt,
			})
			committed = append(committed, rec)
		}
		pending[b.StreamID] = current
	}

	if len(docs) == 0 {
		return nil
	}
	if _, err := s.collection.InsertMany(sessCtx, docs); err != nil {
		return err
	}

	if s.outbox != nil {
		rows, err := s.mapper.OutboxEvents(sessCtx, committed)
		if err != nil {
			return err
		}
		if err := s.outbox.SaveAll(sessCtx, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventStore) currentVersion(ctx context.Context, streamID string) (int64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetProjection(bson.M{"version": 1})

	var doc struct {
		Version int64 `bson:"version"`
	}
	err := s.collection.FindOne(ctx, bson.M{"streamId": streamID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Version, nil
}

// translate maps driver failures onto the store contract. A duplicate
// (streamId, version) means another writer won the race.
func (s *EventStore) translate(err error, batches []domain.EventStreamBatch) error {
	if err == nil {
		return nil
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) || errors.Is(err, domain.ErrInvalidValue) {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		streamID := ""
		if len(batches) == 1 {
			streamID = batches[0].StreamID
		}
		return &domain.ConflictError{StreamID: streamID, Expected: -1, Actual: -1}
	}
	if pkgmongo.IsUnavailable(err) {
		s.logger.Error("Event store unreachable", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("failed to save events: %w", err)
}

// GetEvents returns the stream ordered by version
func (s *EventStore) GetEvents(ctx context.Context, streamID string) ([]domain.EventRecord, error) {
	return tracing.TracedOperation(ctx, s.tracer, "mongodb.get_events", func(ctx context.Context) ([]domain.EventRecord, error) {
		return s.getEvents(ctx, streamID)
	}, tracing.EventStoreSpanAttributes("mongodb", "find", []string{streamID})...)
}

func (s *EventStore) getEvents(ctx context.Context, streamID string) ([]domain.EventRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"streamId": streamID}, opts)
	if err != nil {
		if pkgmongo.IsUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		return nil, fmt.Errorf("failed to load stream %s: %w", streamID, err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode stream %s: %w", streamID, err)
	}
	records := make([]domain.EventRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

var _ domain.EventStore = (*EventStore)(nil)
