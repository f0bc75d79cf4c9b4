package domain

import (
	"context"
	"time"
)

// EventStore is an append-only log of event streams with optimistic concurrency.
// A stream's version is the number of events it holds; an absent stream is at 0.
type EventStore interface {
	// AppendEvents appends to one stream when it is at expectedVersion.
	// Otherwise it fails with ErrConcurrencyConflict and writes nothing.
	AppendEvents(ctx context.Context, streamID string, expectedVersion int64, events []EventRecord) error

	// SaveBatch appends to several streams atomically. A single failed
	// version check aborts the whole batch.
	SaveBatch(ctx context.Context, batches []EventStreamBatch) error

	// GetEvents returns the stream in append order, or nothing if it does not exist.
	GetEvents(ctx context.Context, streamID string) ([]EventRecord, error)
}

// LockService grants TTL-bound exclusive leases on named resources.
type LockService interface {
	// AcquireLock makes one attempt. It returns false when the key is held.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ReleaseLock is idempotent.
	ReleaseLock(ctx context.Context, key string) error
}

// Lock key prefixes
const (
	LpnLockPrefix      = "LPN:"
	LocationLockPrefix = "LOC:"
	OrderLockPrefix    = "ORDER:"
)

func LpnLockKey(lpnID string) string     { return LpnLockPrefix + lpnID }
func LocationLockKey(code string) string { return LocationLockPrefix + code }
func OrderLockKey(orderID string) string { return OrderLockPrefix + orderID }

// LpnIDGenerator hands out LPN ids that are never reused.
type LpnIDGenerator interface {
	NextLpnID(ctx context.Context) (string, error)
}

// ProductCatalog looks up product master data
type ProductCatalog interface {
	GetProduct(ctx context.Context, sku string) (*Product, error)
}

// InboundOrderLookup resolves the receipt an LPN arrives against
type InboundOrderLookup interface {
	GetInboundOrder(ctx context.Context, orderID string) (*InboundOrder, error)
}

// OutboundOrderQuery resolves outbound demand
type OutboundOrderQuery interface {
	GetOutboundOrder(ctx context.Context, orderID string) (*OutboundOrder, error)
}

// EventPublisher hands committed events to the message bus. Delivery is not
// confirmed to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, records []EventRecord) error
}

// WaveRepository defines the interface for wave persistence
type WaveRepository interface {
	NextWaveNumber(ctx context.Context) (int64, error)
	Save(ctx context.Context, wave *Wave) error
	FindByID(ctx context.Context, waveID string) (*Wave, error)
}

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	SaveAll(ctx context.Context, tasks []*Task) error
	Save(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, taskID string) (*Task, error)
	FindByWave(ctx context.Context, waveID string) ([]*Task, error)
}

// LpnView is the read-model row for one LPN.
type LpnView struct {
	LpnID        string    `json:"lpnId" bson:"_id"`
	TenantID     string    `json:"tenantId" bson:"tenantId"`
	SKU          string    `json:"sku" bson:"sku"`
	Quantity     int       `json:"quantity" bson:"quantity"`
	Reserved     int       `json:"reserved" bson:"reserved"`
	Status       LpnStatus `json:"status" bson:"status"`
	LocationCode string    `json:"locationCode" bson:"locationCode"`
	Voided       bool      `json:"voided" bson:"voided"`
	Version      int64     `json:"version" bson:"version"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Available is the quantity not yet reserved or allocated.
func (v LpnView) Available() int { return v.Quantity - v.Reserved }

// ViewFromLpn projects an LPN state into its read-model row.
func ViewFromLpn(l Lpn, at time.Time) LpnView {
	return LpnView{
		LpnID:        l.ID,
		TenantID:     l.TenantID,
		SKU:          l.SKU,
		Quantity:     l.Quantity,
		Reserved:     l.Reserved,
		Status:       l.Status,
		LocationCode: l.CurrentLocation,
		Voided:       l.Voided,
		Version:      l.Version,
		UpdatedAt:    at.UTC(),
	}
}

// LpnViewRepository stores and queries the LPN read model
type LpnViewRepository interface {
	Upsert(ctx context.Context, view LpnView) error
	FindByID(ctx context.Context, lpnID string) (*LpnView, error)
	// FindAvailable returns stored, unallocated, non-voided LPNs of sku.
	FindAvailable(ctx context.Context, tenantID, sku string) ([]LpnView, error)
}
