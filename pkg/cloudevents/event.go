package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// SourceLpnService is the CloudEvents source of everything this service emits.
const SourceLpnService = "/wms/lpn-service"

// CloudEvents extension attribute names
const (
	ExtTenantID      = "wmstenantid"
	ExtCorrelationID = "wmscorrelationid"
	ExtWaveNumber    = "wmswavenumber"
	ExtStationID     = "wmsstationid"
	ExtTraceParent   = "traceparent"
)

// HTTP header names for tenant context
const (
	HeaderTenantID    = "X-WMS-Tenant-ID"
	HeaderWarehouseID = "X-WMS-Warehouse-ID"
	HeaderActorID     = "X-WMS-Actor-ID"
	HeaderRole        = "X-WMS-Role"
	HeaderStationID   = "X-WMS-Station-ID"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	TenantID      string `json:"wmstenantid,omitempty"`
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WaveNumber    string `json:"wmswavenumber,omitempty"`
	StationID     string `json:"wmsstationid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}

// EventFactory creates CloudEvents for a fixed source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent creates a new WMSCloudEvent. Tenant and correlation ids are
// taken from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		TenantID:        tenant.GetTenantID(ctx),
	}
	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}
	return event
}

// WithTenant sets the tenant extension and returns the event
func (e *WMSCloudEvent) WithTenant(tenantID string) *WMSCloudEvent {
	e.TenantID = tenantID
	return e
}

// WithTime overrides the event time and returns the event
func (e *WMSCloudEvent) WithTime(t time.Time) *WMSCloudEvent {
	e.Time = t.UTC()
	return e
}

// Extensions returns the non-empty extension attributes, keyed by CloudEvents name.
func (e *WMSCloudEvent) Extensions() map[string]string {
	ext := make(map[string]string, 5)
	if e.TenantID != "" {
		ext[ExtTenantID] = e.TenantID
	}
	if e.CorrelationID != "" {
		ext[ExtCorrelationID] = e.CorrelationID
	}
	if e.WaveNumber != "" {
		ext[ExtWaveNumber] = e.WaveNumber
	}
	if e.StationID != "" {
		ext[ExtStationID] = e.StationID
	}
	if e.TraceParent != "" {
		ext[ExtTraceParent] = e.TraceParent
	}
	return ext
}
