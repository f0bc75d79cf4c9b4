package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/internal/infrastructure/messaging"
	outboxmongo "github.com/wms-platform/lpn-service/pkg/outbox/mongodb"
)

type EventStoreIntegrationTestSuite struct {
	suite.Suite
	container *tcmongo.MongoDBContainer
	client    *mongo.Client
	db        *mongo.Database
	store     *EventStore
	outbox    *outboxmongo.OutboxRepository
	ctx       context.Context
}

func TestEventStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	suite.Run(t, new(EventStoreIntegrationTestSuite))
}

func (s *EventStoreIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// Transactions need a replica set
	container, err := tcmongo.Run(s.ctx, "mongo:6", tcmongo.WithReplicaSet("rs"))
	s.Require().NoError(err)
	s.container = container

	uri, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)

	client, err := mongo.Connect(s.ctx, options.Client().ApplyURI(uri).SetDirect(true))
	s.Require().NoError(err)
	s.Require().NoError(client.Ping(s.ctx, nil))
	s.client = client
	s.db = client.Database("lpn_test")

	s.outbox = outboxmongo.NewOutboxRepository(s.db)
	s.store = NewEventStore(s.db, WithOutbox(s.outbox, messaging.NewEventMapper(nil)))
	s.Require().NoError(s.store.EnsureIndexes(s.ctx))
	s.Require().NoError(NewLpnViewRepository(s.db).EnsureIndexes(s.ctx))
}

func (s *EventStoreIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

func (s *EventStoreIntegrationTestSuite) TearDownTest() {
	for _, name := range []string{LpnViewsCollection, WavesCollection, TasksCollection, CountersCollection, outboxmongo.DefaultCollectionName} {
		_ = s.db.Collection(name).Drop(s.ctx)
	}
	_, _ = s.db.Collection(EventsCollection).DeleteMany(s.ctx, bson.M{})
}

func event(eventType string) domain.EventRecord {
	return domain.EventRecord{
		EventType:  eventType,
		Data:       json.RawMessage(`{"aggregateId":"A"}`),
		ActorID:    "op-1",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *EventStoreIntegrationTestSuite) TestAppendAndLoad() {
	err := s.store.AppendEvents(s.ctx, "lpn-A", 0, []domain.EventRecord{event(domain.EventLpnCreated), event(domain.EventLpnReceived)})
	s.Require().NoError(err)

	records, err := s.store.GetEvents(s.ctx, "lpn-A")
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(int64(1), records[0].Version)
	s.Equal(int64(2), records[1].Version)
	s.Equal(domain.EventLpnReceived, records[1].EventType)
	s.JSONEq(`{"aggregateId":"A"}`, string(records[1].Data))

	missing, err := s.store.GetEvents(s.ctx, "lpn-missing")
	s.Require().NoError(err)
	s.Empty(missing)
}

func (s *EventStoreIntegrationTestSuite) TestStaleVersionConflicts() {
	s.Require().NoError(s.store.AppendEvents(s.ctx, "lpn-B", 0, []domain.EventRecord{event(domain.EventLpnCreated)}))

	err := s.store.AppendEvents(s.ctx, "lpn-B", 0, []domain.EventRecord{event(domain.EventLpnCreated)})
	var conflict *domain.ConflictError
	s.Require().True(errors.As(err, &conflict))
	s.Equal(int64(1), conflict.Actual)
	s.ErrorIs(err, domain.ErrConcurrencyConflict)
}

func (s *EventStoreIntegrationTestSuite) TestSaveBatchIsAtomic() {
	s.Require().NoError(s.store.AppendEvents(s.ctx, "location-A-01", 0, []domain.EventRecord{event(domain.EventLocationCreated)}))

	err := s.store.SaveBatch(s.ctx, []domain.EventStreamBatch{
		{StreamID: "lpn-C", ExpectedVersion: 0, Events: []domain.EventRecord{event(domain.EventLpnPutawayCompleted)}},
		{StreamID: "location-A-01", ExpectedVersion: 0, Events: []domain.EventRecord{event(domain.EventLocationLpnAssigned)}},
	})
	s.ErrorIs(err, domain.ErrConcurrencyConflict)

	records, err := s.store.GetEvents(s.ctx, "lpn-C")
	s.Require().NoError(err)
	s.Empty(records)

	pending, err := s.outbox.FindUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 1, "only the first location event reached the outbox")
}

func (s *EventStoreIntegrationTestSuite) TestOutboxRowsPerEvent() {
	err := s.store.SaveBatch(s.ctx, []domain.EventStreamBatch{
		{StreamID: "lpn-D", ExpectedVersion: 0, Events: []domain.EventRecord{event(domain.EventLpnPutawayCompleted)}},
		{StreamID: "location-B-01", ExpectedVersion: 0, Events: []domain.EventRecord{event(domain.EventLocationCreated)}},
	})
	s.Require().NoError(err)

	pending, err := s.outbox.FindUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)

	topics := map[string]string{}
	for _, row := range pending {
		topics[row.StreamID] = row.Topic
	}
	s.Equal("wms.inventory.events", topics["lpn-D"])
	s.Equal("wms.facility.events", topics["location-B-01"])
}

func (s *EventStoreIntegrationTestSuite) TestViewsIgnoreStaleVersions() {
	views := NewLpnViewRepository(s.db)
	fresh := domain.LpnView{LpnID: "L1", TenantID: "T1", SKU: "SKU-1", Quantity: 10, Status: domain.LpnStatusPutaway, Version: 4}
	s.Require().NoError(views.Upsert(s.ctx, fresh))

	stale := fresh
	stale.Quantity = 99
	stale.Version = 3
	s.Require().NoError(views.Upsert(s.ctx, stale))

	got, err := views.FindByID(s.ctx, "L1")
	s.Require().NoError(err)
	s.Equal(10, got.Quantity)

	reserved := fresh
	reserved.LpnID = "L2"
	reserved.Reserved = 10
	s.Require().NoError(views.Upsert(s.ctx, reserved))

	available, err := views.FindAvailable(s.ctx, "T1", "SKU-1")
	s.Require().NoError(err)
	s.Require().Len(available, 1)
	s.Equal("L1", available[0].LpnID)

	_, err = views.FindByID(s.ctx, "L404")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *EventStoreIntegrationTestSuite) TestCountersAndTasks() {
	waves := NewWaveRepository(s.db)
	first, err := waves.NextWaveNumber(s.ctx)
	s.Require().NoError(err)
	second, err := waves.NextWaveNumber(s.ctx)
	s.Require().NoError(err)
	s.Equal(first+1, second)

	id, err := NewLpnSequence(s.db).NextLpnID(s.ctx)
	s.Require().NoError(err)
	s.Equal("LPN0000000000000001", id)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	wave := domain.NewWave("w1", "T1", first, now)
	s.Require().NoError(wave.AddOrder("OUT-1"))
	s.Require().NoError(waves.Save(s.ctx, wave))

	tasks := NewTaskRepository(s.db)
	s.Require().NoError(tasks.EnsureIndexes(s.ctx))
	s.Require().NoError(tasks.SaveAll(s.ctx, []*domain.Task{
		domain.NewTask("t1", "T1", "w1", "OUT-1", domain.TaskTypePickToTote, "A-01", "L1", "SKU-1", 4, now),
		domain.NewTask("t2", "T1", "w1", "OUT-1", domain.TaskTypeCycleCount, "A-01", "", "SKU-1", 2, now.Add(time.Second)),
	}))

	loaded, err := waves.FindByID(s.ctx, "w1")
	s.Require().NoError(err)
	s.Equal([]string{"OUT-1"}, loaded.OrderIDs)

	byWave, err := tasks.FindByWave(s.ctx, "w1")
	s.Require().NoError(err)
	s.Require().Len(byWave, 2)
	s.Equal("t1", byWave[0].ID)
}
