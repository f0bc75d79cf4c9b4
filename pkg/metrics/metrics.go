package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors. All Record methods are
// safe to call on a nil *Metrics so callers can run without instrumentation.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Lock metrics
	LockAcquisitions *prometheus.CounterVec

	// Event store metrics
	EventsAppended       *prometheus.CounterVec
	ConcurrencyConflicts *prometheus.CounterVec

	// Wave metrics
	WavesAllocated *prometheus.CounterVec
	TasksCreated   *prometheus.CounterVec

	// RFID metrics
	RFIDReads *prometheus.CounterVec

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// Outbox metrics
	OutboxPending *prometheus.GaugeVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance on a private registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"service", "method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "lpn_commands_total", Help: "Inventory commands handled, by outcome"},
		[]string{"service", "command", "outcome"},
	)
	m.CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "lpn_command_duration_seconds",
			Help:      "Inventory command latency including locking and persistence",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "command"},
	)

	m.LockAcquisitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "lock_acquisitions_total", Help: "Distributed lock acquisition attempts"},
		[]string{"service", "resource", "result"},
	)

	m.EventsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "events_appended_total", Help: "Domain events committed to the event store"},
		[]string{"service", "stream_type"},
	)
	m.ConcurrencyConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "event_store_conflicts_total", Help: "Appends rejected on expected version"},
		[]string{"service", "stream_type"},
	)

	m.WavesAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "waves_allocated_total", Help: "Waves run through allocation"},
		[]string{"service", "status"},
	)
	m.TasksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "wave_tasks_created_total", Help: "Fulfillment tasks produced by wave allocation"},
		[]string{"service", "task_type"},
	)

	m.RFIDReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "rfid_reads_total", Help: "RFID tag reads by outcome"},
		[]string{"service", "result"},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "kafka_events_published_total", Help: "Total number of Kafka events published"},
		[]string{"service", "topic", "event_type", "status"},
	)
	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.OutboxPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "outbox_pending_events", Help: "Unpublished outbox events seen by the last poll"},
		[]string{"service"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
		[]string{"service", "name"},
	)
	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "circuit_breaker_trips_total", Help: "Circuit breaker trips to open"},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CommandsTotal,
		m.CommandDuration,
		m.LockAcquisitions,
		m.EventsAppended,
		m.ConcurrencyConflicts,
		m.WavesAllocated,
		m.TasksCreated,
		m.RFIDReads,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.OutboxPending,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordCommand records one handled command. result is "success" or an error code.
func (m *Metrics) RecordCommand(command, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(m.serviceName, command, result).Inc()
	m.CommandDuration.WithLabelValues(m.serviceName, command).Observe(duration.Seconds())
}

// RecordLockAcquisition records a lock attempt on a resource class (LPN, LOC, ORDER).
func (m *Metrics) RecordLockAcquisition(resource string, acquired bool) {
	if m == nil {
		return
	}
	result := "acquired"
	if !acquired {
		result = "contended"
	}
	m.LockAcquisitions.WithLabelValues(m.serviceName, resource, result).Inc()
}

// RecordEventsAppended records committed events for a stream type.
func (m *Metrics) RecordEventsAppended(streamType string, count int) {
	if m == nil {
		return
	}
	m.EventsAppended.WithLabelValues(m.serviceName, streamType).Add(float64(count))
}

// RecordConcurrencyConflict records an append rejected on version.
func (m *Metrics) RecordConcurrencyConflict(streamType string) {
	if m == nil {
		return
	}
	m.ConcurrencyConflicts.WithLabelValues(m.serviceName, streamType).Inc()
}

// RecordWaveAllocated records a finished allocation run
func (m *Metrics) RecordWaveAllocated(success bool) {
	if m == nil {
		return
	}
	m.WavesAllocated.WithLabelValues(m.serviceName, outcome(success)).Inc()
}

// RecordTaskCreated records a task produced by allocation
func (m *Metrics) RecordTaskCreated(taskType string) {
	if m == nil {
		return
	}
	m.TasksCreated.WithLabelValues(m.serviceName, taskType).Inc()
}

// RecordRFIDRead records a tag read by result (accepted, duplicate, rejected).
func (m *Metrics) RecordRFIDRead(result string) {
	if m == nil {
		return
	}
	m.RFIDReads.WithLabelValues(m.serviceName, result).Inc()
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// SetOutboxPending sets the number of unpublished outbox events
func (m *Metrics) SetOutboxPending(count int) {
	if m == nil {
		return
	}
	m.OutboxPending.WithLabelValues(m.serviceName).Set(float64(count))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
