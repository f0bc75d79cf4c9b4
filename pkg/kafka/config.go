package kafka

import (
	"strings"
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "lpn-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Topics the inventory service publishes to
var Topics = struct {
	InventoryEvents string
	LocationEvents  string
	WavesEvents     string
}{
	InventoryEvents: "wms.inventory.events",
	LocationEvents:  "wms.facility.events",
	WavesEvents:     "wms.waves.events",
}

// TopicForStream routes an event stream to its topic by aggregate type.
func TopicForStream(streamType string) string {
	switch streamType {
	case "location":
		return Topics.LocationEvents
	case "wave":
		return Topics.WavesEvents
	default:
		return Topics.InventoryEvents
	}
}
