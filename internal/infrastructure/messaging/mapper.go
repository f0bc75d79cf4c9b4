package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/cloudevents"
	"github.com/wms-platform/lpn-service/pkg/kafka"
	"github.com/wms-platform/lpn-service/pkg/outbox"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

// EventData is the CloudEvent payload of a committed event record.
type EventData struct {
	StreamID string          `json:"streamId"`
	Version  int64           `json:"version"`
	ActorID  string          `json:"actorId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// EventMapper turns committed event records into CloudEvents and outbox rows.
type EventMapper struct {
	factory *cloudevents.EventFactory
}

// NewEventMapper creates a mapper. A nil factory uses the service source.
func NewEventMapper(factory *cloudevents.EventFactory) *EventMapper {
	if factory == nil {
		factory = cloudevents.NewEventFactory(cloudevents.SourceLpnService)
	}
	return &EventMapper{factory: factory}
}

// EventID is stable per stream position, so consumers can drop redeliveries.
func EventID(rec domain.EventRecord) string {
	return fmt.Sprintf("%s/%d", rec.StreamID, rec.Version)
}

// ToCloudEvent wraps rec. Tenant, correlation and trace ids come from ctx.
func (m *EventMapper) ToCloudEvent(ctx context.Context, rec domain.EventRecord) *cloudevents.WMSCloudEvent {
	event := m.factory.CreateEvent(ctx, rec.EventType, rec.StreamID, EventData{
		StreamID: rec.StreamID,
		Version:  rec.Version,
		ActorID:  rec.ActorID,
		Payload:  rec.Data,
	})
	event.ID = EventID(rec)
	event.StationID = rec.StationID
	event.TraceParent = tracing.TraceParent(ctx)
	if !rec.OccurredAt.IsZero() {
		event.WithTime(rec.OccurredAt)
	}
	return event
}

// Topic routes rec by the aggregate kind of its stream.
func Topic(rec domain.EventRecord) string {
	return kafka.TopicForStream(domain.StreamType(rec.StreamID))
}

// OutboxEvents maps records to outbox rows in commit order.
func (m *EventMapper) OutboxEvents(ctx context.Context, records []domain.EventRecord) ([]*outbox.OutboxEvent, error) {
	events := make([]*outbox.OutboxEvent, 0, len(records))
	for _, rec := range records {
		row, err := outbox.NewOutboxEventFromCloudEvent(rec.StreamID, domain.StreamType(rec.StreamID), rec.Version, Topic(rec), m.ToCloudEvent(ctx, rec))
		if err != nil {
			return nil, fmt.Errorf("map %s v%d to outbox: %w", rec.StreamID, rec.Version, err)
		}
		events = append(events, row)
	}
	return events, nil
}
