package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// Collection names
const (
	LpnViewsCollection       = "lpn_views"
	WavesCollection          = "waves"
	TasksCollection          = "tasks"
	CountersCollection       = "counters"
	ProductsCollection       = "products"
	InboundOrdersCollection  = "inbound_orders"
	OutboundOrdersCollection = "outbound_orders"
)

func notFound(kind, id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to find %s %s: %w", kind, id, err)
}

// LpnViewRepository stores the LPN read model
type LpnViewRepository struct {
	collection *mongo.Collection
}

func NewLpnViewRepository(db *mongo.Database) *LpnViewRepository {
	return &LpnViewRepository{collection: db.Collection(LpnViewsCollection)}
}

func (r *LpnViewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "sku", Value: 1},
			{Key: "status", Value: 1},
		},
		Options: options.Index().SetName("idx_tenant_sku_status"),
	})
	return err
}

// Upsert writes view unless a newer version is stored. The version filter
// misses on a newer row and the upsert then collides on _id, which is
// treated as stale.
func (r *LpnViewRepository) Upsert(ctx context.Context, view domain.LpnView) error {
	filter := bson.M{"_id": view.LpnID, "version": bson.M{"$lte": view.Version}}
	_, err := r.collection.ReplaceOne(ctx, filter, view, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to upsert lpn view: %w", err)
	}
	return nil
}

func (r *LpnViewRepository) FindByID(ctx context.Context, lpnID string) (*domain.LpnView, error) {
	var view domain.LpnView
	if err := r.collection.FindOne(ctx, bson.M{"_id": lpnID}).Decode(&view); err != nil {
		return nil, notFound("lpn", lpnID, err)
	}
	return &view, nil
}

func (r *LpnViewRepository) FindAvailable(ctx context.Context, tenantID, sku string) ([]domain.LpnView, error) {
	filter := bson.M{
		"tenantId": tenantID,
		"sku":      sku,
		"status":   domain.LpnStatusPutaway,
		"voided":   false,
		"$expr":    bson.M{"$gt": bson.A{"$quantity", "$reserved"}},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query available lpns: %w", err)
	}
	defer cursor.Close(ctx)

	views := []domain.LpnView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode lpn views: %w", err)
	}
	return views, nil
}

// counters hands out monotonic numbers from a shared collection
type counters struct {
	collection *mongo.Collection
}

func (c counters) next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return doc.Seq, nil
}

// LpnSequence issues LPN ids from a counter document
type LpnSequence struct {
	counters counters
}

func NewLpnSequence(db *mongo.Database) *LpnSequence {
	return &LpnSequence{counters: counters{collection: db.Collection(CountersCollection)}}
}

func (s *LpnSequence) NextLpnID(ctx context.Context) (string, error) {
	seq, err := s.counters.next(ctx, "lpn")
	if err != nil {
		return "", err
	}
	return domain.FormatLpnID(seq), nil
}

// WaveRepository implements domain.WaveRepository
type WaveRepository struct {
	collection *mongo.Collection
	counters   counters
}

func NewWaveRepository(db *mongo.Database) *WaveRepository {
	return &WaveRepository{
		collection: db.Collection(WavesCollection),
		counters:   counters{collection: db.Collection(CountersCollection)},
	}
}

func (r *WaveRepository) NextWaveNumber(ctx context.Context) (int64, error) {
	return r.counters.next(ctx, "wave")
}

func (r *WaveRepository) Save(ctx context.Context, wave *domain.Wave) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": wave.ID}, wave, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save wave: %w", err)
	}
	return nil
}

func (r *WaveRepository) FindByID(ctx context.Context, waveID string) (*domain.Wave, error) {
	var wave domain.Wave
	if err := r.collection.FindOne(ctx, bson.M{"_id": waveID}).Decode(&wave); err != nil {
		return nil, notFound("wave", waveID, err)
	}
	return &wave, nil
}

// TaskRepository implements domain.TaskRepository
type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{collection: db.Collection(TasksCollection)}
}

func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "waveId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("idx_wave_createdAt"),
	})
	return err
}

// SaveAll upserts the tasks in one ordered bulk write
func (r *TaskRepository) SaveAll(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(tasks))
	for _, t := range tasks {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": t.ID}).
			SetReplacement(t).
			SetUpsert(true))
	}
	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}

func (r *TaskRepository) Save(ctx context.Context, task *domain.Task) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*domain.Task, error) {
	var task domain.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		return nil, notFound("task", taskID, err)
	}
	return &task, nil
}

func (r *TaskRepository) FindByWave(ctx context.Context, waveID string) ([]*domain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"waveId": waveID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*domain.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// Catalog reads product master data and order documents maintained by
// upstream services.
type Catalog struct {
	products *mongo.Collection
	inbound  *mongo.Collection
	outbound *mongo.Collection
}

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{
		products: db.Collection(ProductsCollection),
		inbound:  db.Collection(InboundOrdersCollection),
		outbound: db.Collection(OutboundOrdersCollection),
	}
}

func (c *Catalog) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	if err := c.products.FindOne(ctx, bson.M{"_id": sku}).Decode(&p); err != nil {
		return nil, notFound("product", sku, err)
	}
	return &p, nil
}

func (c *Catalog) GetInboundOrder(ctx context.Context, orderID string) (*domain.InboundOrder, error) {
	var o domain.InboundOrder
	if err := c.inbound.FindOne(ctx, bson.M{"_id": orderID}).Decode(&o); err != nil {
		return nil, notFound("inbound order", orderID, err)
	}
	return &o, nil
}

func (c *Catalog) GetOutboundOrder(ctx context.Context, orderID string) (*domain.OutboundOrder, error) {
	var o domain.OutboundOrder
	if err := c.outbound.FindOne(ctx, bson.M{"_id": orderID}).Decode(&o); err != nil {
		return nil, notFound("outbound order", orderID, err)
	}
	return &o, nil
}
