package application

import (
	"time"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// ReceiveResult lists the LPNs a receipt produced, in creation order
type ReceiveResult struct {
	LpnIDs       []string `json:"lpnIds"`
	SKU          string   `json:"sku"`
	LocationCode string   `json:"locationCode"`
	UnitsPerLpn  int      `json:"unitsPerLpn"`
	Quarantined  bool     `json:"quarantined"`
}

// LpnDTO is the API shape of an LPN
type LpnDTO struct {
	ID               string                    `json:"id"`
	TenantID         string                    `json:"tenantId"`
	Code             string                    `json:"code"`
	SKU              string                    `json:"sku"`
	Quantity         int                       `json:"quantity"`
	Reserved         int                       `json:"reserved"`
	Available        int                       `json:"available"`
	Status           string                    `json:"status"`
	LocationCode     string                    `json:"locationCode,omitempty"`
	SelectedOrderID  string                    `json:"selectedOrderId,omitempty"`
	ParentLpnID      string                    `json:"parentLpnId,omitempty"`
	QuarantineReason string                    `json:"quarantineReason,omitempty"`
	Voided           bool                      `json:"voided"`
	Attributes       domain.PhysicalAttributes `json:"attributes"`
	Version          int64                     `json:"version"`
}

// CountResult reports the variance between a count and the booked quantity
type CountResult struct {
	LpnID           string `json:"lpnId"`
	CountedQuantity int    `json:"countedQuantity"`
	SystemQuantity  int    `json:"systemQuantity"`
	Variance        int    `json:"variance"`
}

// PackResult lists the LPNs packed into a container
type PackResult struct {
	ParentLpnID string   `json:"parentLpnId"`
	LpnIDs      []string `json:"lpnIds"`
}

// DispatchResult lists the LPNs shipped for an order
type DispatchResult struct {
	OrderID string   `json:"orderId"`
	LpnIDs  []string `json:"lpnIds"`
}

// VoidResult reports the orders whose allocations were reverted
type VoidResult struct {
	LpnID          string   `json:"lpnId"`
	RevertedOrders []string `json:"revertedOrders"`
	RevertedUnits  int      `json:"revertedUnits"`
}

// TaskDTO is the API shape of a wave task
type TaskDTO struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenantId"`
	WaveID            string     `json:"waveId"`
	OrderID           string     `json:"orderId"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	SourceLocation    string     `json:"sourceLocation"`
	LpnID             string     `json:"lpnId,omitempty"`
	SKU               string     `json:"sku"`
	RequestedQuantity int        `json:"requestedQuantity"`
	PickedQuantity    int        `json:"pickedQuantity"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// WaveDTO is the API shape of a wave
type WaveDTO struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Number      int64      `json:"number"`
	Status      string     `json:"status"`
	OrderIDs    []string   `json:"orderIds"`
	CreatedAt   time.Time  `json:"createdAt"`
	AllocatedAt *time.Time `json:"allocatedAt,omitempty"`
	ReleasedAt  *time.Time `json:"releasedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Tasks       []TaskDTO  `json:"tasks,omitempty"`
}
