package domain

// OrderLineStatus represents the approval state of an outbound line
type OrderLineStatus string

const (
	OrderLineOpen            OrderLineStatus = "OPEN"
	OrderLinePendingApproval OrderLineStatus = "PENDING_APPROVAL"
	OrderLineApproved        OrderLineStatus = "APPROVED"
	OrderLineRejected        OrderLineStatus = "REJECTED"
	OrderLineCompleted       OrderLineStatus = "COMPLETED"
)

// Allocatable reports whether wave allocation may take stock for the line.
func (s OrderLineStatus) Allocatable() bool {
	return s == OrderLineOpen || s == OrderLineApproved
}

// OutboundOrder is demand to be fulfilled from stored LPNs.
type OutboundOrder struct {
	ID       string      `json:"id" bson:"_id"`
	TenantID string      `json:"tenantId" bson:"tenantId"`
	Lines    []OrderLine `json:"lines" bson:"lines"`
}

// OrderLine is one SKU requested by an outbound order
type OrderLine struct {
	SKU      string          `json:"sku" bson:"sku"`
	Quantity int             `json:"quantity" bson:"quantity"`
	Status   OrderLineStatus `json:"status" bson:"status"`
}

// InboundOrder is the expected receipt an LPN arrives against. Crossdock
// receipts go straight to staging for TargetOutboundOrderID.
type InboundOrder struct {
	ID                    string         `json:"id" bson:"_id"`
	TenantID              string         `json:"tenantId" bson:"tenantId"`
	Crossdock             bool           `json:"crossdock" bson:"crossdock"`
	TargetOutboundOrderID string         `json:"targetOutboundOrderId,omitempty" bson:"targetOutboundOrderId,omitempty"`
	ExpectedQuantities    map[string]int `json:"expectedQuantities,omitempty" bson:"expectedQuantities,omitempty"`
}

// Product is the product master record for a SKU
type Product struct {
	SKU               string             `json:"sku" bson:"_id"`
	Brand             string             `json:"brand,omitempty" bson:"brand,omitempty"`
	HasReferenceImage bool               `json:"hasReferenceImage" bson:"hasReferenceImage"`
	Attributes        PhysicalAttributes `json:"attributes" bson:"attributes"`
}
