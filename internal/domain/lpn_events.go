package domain

// LPN event types
const (
	EventLpnCreated          = "wms.lpn.created"
	EventLpnReceived         = "wms.lpn.received"
	EventLpnLocationChanged  = "wms.lpn.location-changed"
	EventLpnPutawayCompleted = "wms.lpn.putaway-completed"
	EventLpnAllocated        = "wms.lpn.allocated"
	EventLpnQuantityReserved = "wms.lpn.quantity-reserved"
	EventLpnPicked           = "wms.lpn.picked"
	EventLpnPacked           = "wms.lpn.packed"
	EventLpnDispatched       = "wms.lpn.dispatched"
	EventLpnCountReported    = "wms.lpn.count-reported"
	EventLpnQuantityAdjusted = "wms.lpn.quantity-adjusted"
	EventLpnQuarantined      = "wms.lpn.quarantined"
	EventLpnVoided           = "wms.lpn.voided"
)

// LpnEvent is the closed set of events on an LPN stream.
type LpnEvent interface {
	DomainEvent
	isLpnEvent()
}

type LpnCreated struct {
	Meta
	TenantID   string             `json:"tenantId"`
	Code       string             `json:"code"`
	SKU        string             `json:"sku"`
	Quantity   int                `json:"quantity"`
	Attributes PhysicalAttributes `json:"attributes"`
}

type LpnReceived struct {
	Meta
	InboundOrderID string `json:"inboundOrderId"`
	TargetOrderID  string `json:"targetOrderId,omitempty"`
	LocationCode   string `json:"locationCode"`
}

type LpnLocationChanged struct {
	Meta
	FromLocation string `json:"fromLocation,omitempty"`
	ToLocation   string `json:"toLocation"`
}

type LpnPutawayCompleted struct {
	Meta
	LocationCode string `json:"locationCode"`
}

// LpnAllocated claims the whole LPN for one outbound order.
type LpnAllocated struct {
	Meta
	OrderID  string `json:"orderId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// LpnQuantityReserved holds part of an LPN for a loose pick.
type LpnQuantityReserved struct {
	Meta
	OrderID  string `json:"orderId"`
	Quantity int    `json:"quantity"`
}

type LpnPicked struct {
	Meta
	OrderID string `json:"orderId,omitempty"`
}

type LpnPacked struct {
	Meta
	ParentLpnID string `json:"parentLpnId"`
}

type LpnDispatched struct {
	Meta
	OrderID string `json:"orderId,omitempty"`
}

// LpnCountReported is audit only and does not change the LPN.
type LpnCountReported struct {
	Meta
	CountedQuantity int `json:"countedQuantity"`
	SystemQuantity  int `json:"systemQuantity"`
}

type LpnQuantityAdjusted struct {
	Meta
	PreviousQuantity int    `json:"previousQuantity"`
	NewQuantity      int    `json:"newQuantity"`
	Reason           string `json:"reason,omitempty"`
}

type LpnQuarantined struct {
	Meta
	Reason string `json:"reason,omitempty"`
}

// LpnVoided logically cancels the LPN. OrderID names the allocation the
// caller has to revert.
type LpnVoided struct {
	Meta
	Reason  string `json:"reason,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

func (LpnCreated) EventType() string          { return EventLpnCreated }
func (LpnReceived) EventType() string         { return EventLpnReceived }
func (LpnLocationChanged) EventType() string  { return EventLpnLocationChanged }
func (LpnPutawayCompleted) EventType() string { return EventLpnPutawayCompleted }
func (LpnAllocated) EventType() string        { return EventLpnAllocated }
func (LpnQuantityReserved) EventType() string { return EventLpnQuantityReserved }
func (LpnPicked) EventType() string           { return EventLpnPicked }
func (LpnPacked) EventType() string           { return EventLpnPacked }
func (LpnDispatched) EventType() string       { return EventLpnDispatched }
func (LpnCountReported) EventType() string    { return EventLpnCountReported }
func (LpnQuantityAdjusted) EventType() string { return EventLpnQuantityAdjusted }
func (LpnQuarantined) EventType() string      { return EventLpnQuarantined }
func (LpnVoided) EventType() string           { return EventLpnVoided }

func (LpnCreated) isLpnEvent()          {}
func (LpnReceived) isLpnEvent()         {}
func (LpnLocationChanged) isLpnEvent()  {}
func (LpnPutawayCompleted) isLpnEvent() {}
func (LpnAllocated) isLpnEvent()        {}
func (LpnQuantityReserved) isLpnEvent() {}
func (LpnPicked) isLpnEvent()           {}
func (LpnPacked) isLpnEvent()           {}
func (LpnDispatched) isLpnEvent()       {}
func (LpnCountReported) isLpnEvent()    {}
func (LpnQuantityAdjusted) isLpnEvent() {}
func (LpnQuarantined) isLpnEvent()      {}
func (LpnVoided) isLpnEvent()           {}

func init() {
	registerEvent[LpnCreated]()
	registerEvent[LpnReceived]()
	registerEvent[LpnLocationChanged]()
	registerEvent[LpnPutawayCompleted]()
	registerEvent[LpnAllocated]()
	registerEvent[LpnQuantityReserved]()
	registerEvent[LpnPicked]()
	registerEvent[LpnPacked]()
	registerEvent[LpnDispatched]()
	registerEvent[LpnCountReported]()
	registerEvent[LpnQuantityAdjusted]()
	registerEvent[LpnQuarantined]()
	registerEvent[LpnVoided]()
}
