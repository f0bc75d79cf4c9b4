package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wms-platform/lpn-service/pkg/cloudevents"
)

// DefaultMaxRetries bounds how often the publisher retries one event
const DefaultMaxRetries = 10

// ErrEventNotFound is returned when an outbox row does not exist
var ErrEventNotFound = errors.New("outbox event not found")

// OutboxEvent is a CloudEvent stored for reliable delivery. It is written in
// the same transaction as the events it announces and keyed by the CloudEvent
// id, so one stream position yields at most one row.
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	StreamID      string          `bson:"streamId" json:"streamId"`
	StreamType    string          `bson:"streamType" json:"streamType"`
	StreamVersion int64           `bson:"streamVersion" json:"streamVersion"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewOutboxEventFromCloudEvent stores cloudEvent as the row for position
// version of streamID
func NewOutboxEventFromCloudEvent(streamID, streamType string, version int64, topic string, cloudEvent *cloudevents.WMSCloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(cloudEvent)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            cloudEvent.ID,
		StreamID:      streamID,
		StreamType:    streamType,
		StreamVersion: version,
		EventType:     cloudEvent.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     cloudEvent.Time,
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// IsPublished checks if the event has been published
func (e *OutboxEvent) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry checks if the event should be retried
func (e *OutboxEvent) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}

// ToCloudEvent converts the outbox event payload to a CloudEvent
func (e *OutboxEvent) ToCloudEvent() (*cloudevents.WMSCloudEvent, error) {
	var cloudEvent cloudevents.WMSCloudEvent
	if err := json.Unmarshal(e.Payload, &cloudEvent); err != nil {
		return nil, err
	}
	return &cloudEvent, nil
}

// Repository defines the interface for outbox event persistence
type Repository interface {
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns retryable unpublished events, oldest first and
	// in version order within a stream.
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkPublished and IncrementRetry return ErrEventNotFound for unknown ids
	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry increments the retry count and records the last error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// DeletePublished removes events published before olderThan ago.
	DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}
