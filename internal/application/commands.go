package application

import "github.com/wms-platform/lpn-service/internal/domain"

// Origin identifies who issued a command and from which station. ActorID
// falls back to the tenant context when empty.
type Origin struct {
	ActorID   string
	StationID string
}

// ReceiveCommand books inbound stock against an inbound order
type ReceiveCommand struct {
	InboundOrderID string
	Quantity       int
	LpnID          string
	SKU            string
	RawScan        string
	LpnCount       int
	UnitsPerLpn    int
	PhotoSample    bool
	Attributes     *domain.PhysicalAttributes
	Origin
}

// PutawayCommand stores an LPN in a location
type PutawayCommand struct {
	LpnID        string
	LocationCode string
	Origin
}

// PickCommand picks an allocated LPN. TaskID, when set, names the task the
// pick completes.
type PickCommand struct {
	LpnID          string
	TaskID         string
	PickedQuantity int
	Origin
}

// PackCommand packs picked LPNs into a container LPN
type PackCommand struct {
	ParentLpnID string
	LpnIDs      []string
	Origin
}

// DispatchCommand ships LPNs for an outbound order
type DispatchCommand struct {
	OrderID string
	LpnIDs  []string
	Origin
}

// AllocateCommand claims a whole LPN for an outbound order
type AllocateCommand struct {
	LpnID   string
	OrderID string
	SKU     string
	Origin
}

// ReportCountCommand records a physical count
type ReportCountCommand struct {
	LpnID           string
	CountedQuantity int
	Origin
}

// AuthorizeAdjustmentCommand sets the booked quantity of an LPN. Supervisors only.
type AuthorizeAdjustmentCommand struct {
	LpnID       string
	NewQuantity int
	Reason      string
	Origin
}

// VoidCommand cancels an LPN and releases what it holds for orders
type VoidCommand struct {
	LpnID  string
	Reason string
	Origin
}

// QuarantineCommand takes an LPN out of circulation
type QuarantineCommand struct {
	LpnID  string
	Reason string
	Origin
}

// AllocateWaveCommand plans and allocates a wave over outbound orders
type AllocateWaveCommand struct {
	OrderIDs []string
	Origin
}

// CompleteTaskCommand closes a wave task
type CompleteTaskCommand struct {
	TaskID         string
	PickedQuantity int
}
