package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
	Metadata() Meta
}

// Meta is embedded in every event. It carries who caused the transition and where.
type Meta struct {
	Aggregate string    `json:"aggregateId"`
	Actor     string    `json:"actorId,omitempty"`
	Station   string    `json:"stationId,omitempty"`
	At        time.Time `json:"occurredAt"`
}

func (m Meta) AggregateID() string   { return m.Aggregate }
func (m Meta) OccurredAt() time.Time { return m.At }
func (m Meta) Metadata() Meta        { return m }

// NewMeta builds the metadata for a command issued by actor at station.
func NewMeta(actor, station string, at time.Time) Meta {
	return Meta{Actor: actor, Station: station, At: at.UTC()}
}

func (m Meta) forAggregate(id string) Meta {
	m.Aggregate = id
	return m
}

// EventRecord is the persisted form of one event.
type EventRecord struct {
	StreamID   string          `json:"streamId"`
	Version    int64           `json:"version"`
	EventType  string          `json:"eventType"`
	Data       json.RawMessage `json:"data"`
	ActorID    string          `json:"actorId,omitempty"`
	StationID  string          `json:"stationId,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// EventStreamBatch is the unit of persistence for one stream. Batches passed
// to a single SaveBatch call commit together or not at all.
type EventStreamBatch struct {
	StreamID        string
	ExpectedVersion int64
	Events          []EventRecord
}

// Stream id prefixes
const (
	LpnStreamPrefix      = "lpn-"
	LocationStreamPrefix = "location-"
	OrderStreamPrefix    = "order-"
	WaveStreamPrefix     = "wave-"
)

func LpnStreamID(lpnID string) string     { return LpnStreamPrefix + lpnID }
func LocationStreamID(code string) string { return LocationStreamPrefix + code }
func OrderStreamID(orderID string) string { return OrderStreamPrefix + orderID }
func WaveStreamID(waveID string) string   { return WaveStreamPrefix + waveID }

// StreamType returns the aggregate kind encoded in a stream id.
func StreamType(streamID string) string {
	switch {
	case strings.HasPrefix(streamID, LpnStreamPrefix):
		return "lpn"
	case strings.HasPrefix(streamID, LocationStreamPrefix):
		return "location"
	case strings.HasPrefix(streamID, OrderStreamPrefix):
		return "order"
	case strings.HasPrefix(streamID, WaveStreamPrefix):
		return "wave"
	default:
		return "unknown"
	}
}

type decodeFunc func(data []byte) (DomainEvent, error)

var decoders = map[string]decodeFunc{}

func registerEvent[E DomainEvent]() {
	var zero E
	decoders[zero.EventType()] = func(data []byte) (DomainEvent, error) {
		var e E
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
}

// EncodeEvent serializes e for stream streamID. Version is assigned by the store.
func EncodeEvent(streamID string, e DomainEvent) (EventRecord, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	meta := e.Metadata()
	return EventRecord{
		StreamID:   streamID,
		EventType:  e.EventType(),
		Data:       data,
		ActorID:    meta.Actor,
		StationID:  meta.Station,
		OccurredAt: meta.At,
	}, nil
}

// DecodeEvent restores the typed event held by rec.
func DecodeEvent(rec EventRecord) (DomainEvent, error) {
	decode, ok := decoders[rec.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidValue, rec.EventType)
	}
	e, err := decode(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s v%d: %w", rec.StreamID, rec.Version, err)
	}
	return e, nil
}

// NewBatch encodes events into a batch for one stream.
func NewBatch[E DomainEvent](streamID string, expectedVersion int64, events []E) (EventStreamBatch, error) {
	batch := EventStreamBatch{
		StreamID:        streamID,
		ExpectedVersion: expectedVersion,
		Events:          make([]EventRecord, 0, len(events)),
	}
	for _, e := range events {
		rec, err := EncodeEvent(streamID, e)
		if err != nil {
			return EventStreamBatch{}, err
		}
		batch.Events = append(batch.Events, rec)
	}
	return batch, nil
}
