package domain

import "fmt"

// LocationStatus is the occupancy state of a storage location
type LocationStatus string

const (
	LocationStatusEmpty    LocationStatus = "EMPTY"
	LocationStatusOccupied LocationStatus = "OCCUPIED"
	LocationStatusBlocked  LocationStatus = "BLOCKED"
)

// Location event types
const (
	EventLocationCreated     = "wms.location.created"
	EventLocationLpnAssigned = "wms.location.lpn-assigned"
	EventLocationBlocked     = "wms.location.blocked"
)

// LocationEvent is the closed set of events on a location stream.
type LocationEvent interface {
	DomainEvent
	isLocationEvent()
}

type LocationCreated struct {
	Meta
	TenantID string `json:"tenantId"`
}

type LocationLpnAssigned struct {
	Meta
	LpnCode string `json:"lpnCode"`
}

type LocationBlocked struct {
	Meta
	Reason string `json:"reason,omitempty"`
}

func (LocationCreated) EventType() string     { return EventLocationCreated }
func (LocationLpnAssigned) EventType() string { return EventLocationLpnAssigned }
func (LocationBlocked) EventType() string     { return EventLocationBlocked }

func (LocationCreated) isLocationEvent()     {}
func (LocationLpnAssigned) isLocationEvent() {}
func (LocationBlocked) isLocationEvent()     {}

func init() {
	registerEvent[LocationCreated]()
	registerEvent[LocationLpnAssigned]()
	registerEvent[LocationBlocked]()
}

// Location is a storage slot. It is created once and reused across placements.
// There is no release operation: once occupied a location stays occupied even
// after its LPN moves on.
type Location struct {
	Code        string
	TenantID    string
	Status      LocationStatus
	AssignedLpn string
	BlockReason string
	Version     int64
}

func (l Location) Exists() bool { return l.Code != "" }

// CreateLocation opens an empty location.
func CreateLocation(meta Meta, code, tenantID string) (Location, []LocationEvent, error) {
	var l Location
	if err := ValidateLocationCode(code); err != nil {
		return l, nil, err
	}
	if err := ValidateTenantID(tenantID); err != nil {
		return l, nil, err
	}
	return l.emit(LocationCreated{Meta: meta.forAggregate(code), TenantID: tenantID})
}

// AssignLpn places lpnCode in the location. Only empty locations accept an LPN.
func (l Location) AssignLpn(meta Meta, lpnCode string) (Location, []LocationEvent, error) {
	if !l.Exists() {
		return l, nil, fmt.Errorf("location: %w", ErrNotFound)
	}
	if l.Status != LocationStatusEmpty {
		return l, nil, fmt.Errorf("%w: location %s is %s", ErrInvalidState, l.Code, l.Status)
	}
	if lpnCode == "" {
		return l, nil, fmt.Errorf("%w: lpn code is required", ErrInvalidValue)
	}
	return l.emit(LocationLpnAssigned{Meta: meta.forAggregate(l.Code), LpnCode: lpnCode})
}

func (l Location) Block(meta Meta, reason string) (Location, []LocationEvent, error) {
	if !l.Exists() {
		return l, nil, fmt.Errorf("location: %w", ErrNotFound)
	}
	return l.emit(LocationBlocked{Meta: meta.forAggregate(l.Code), Reason: reason})
}

func (l Location) Apply(event LocationEvent) Location {
	switch e := event.(type) {
	case LocationCreated:
		l.Code = e.Aggregate
		l.TenantID = e.TenantID
		l.Status = LocationStatusEmpty
	case LocationLpnAssigned:
		l.Status = LocationStatusOccupied
		l.AssignedLpn = e.LpnCode
	case LocationBlocked:
		l.Status = LocationStatusBlocked
		l.BlockReason = e.Reason
	}
	return l
}

func (l Location) emit(events ...LocationEvent) (Location, []LocationEvent, error) {
	next := l
	for _, e := range events {
		next = next.Apply(e)
	}
	return next, events, nil
}

// LoadLocation rebuilds a location from its stream.
func LoadLocation(records []EventRecord) (Location, error) {
	var l Location
	for _, rec := range records {
		event, err := DecodeEvent(rec)
		if err != nil {
			return Location{}, err
		}
		e, ok := event.(LocationEvent)
		if !ok {
			return Location{}, fmt.Errorf("%w: %s is not a location event", ErrInvalidValue, rec.EventType)
		}
		l = l.Apply(e)
		l.Version = rec.Version
	}
	return l, nil
}
