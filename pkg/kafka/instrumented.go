package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/lpn-service/pkg/cloudevents"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/metrics"
	"github.com/wms-platform/lpn-service/pkg/resilience"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

// InstrumentedProducer wraps an EventProducer with metrics, tracing and a
// circuit breaker.
type InstrumentedProducer struct {
	producer EventProducer
	breaker  *resilience.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer creates a new instrumented producer
func NewInstrumentedProducer(producer EventProducer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	cfg := resilience.DefaultCircuitBreakerConfig("kafka-producer")
	cfg.MaxRequests = 5
	return &InstrumentedProducer{
		producer: producer,
		breaker:  resilience.NewCircuitBreaker(cfg, logger, m),
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes a CloudEvent with metrics and tracing
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(tracing.MessagingSpanAttributes("kafka", topic, "publish")...),
		trace.WithAttributes(
			attribute.String("messaging.kafka.event_type", event.Type),
			attribute.String("messaging.message_id", event.ID),
		),
	)
	defer span.End()

	if event.TenantID != "" {
		span.SetAttributes(attribute.String("wms.tenant_id", event.TenantID))
	}
	if event.CorrelationID != "" {
		span.SetAttributes(attribute.String("wms.correlation_id", event.CorrelationID))
	}

	_, err := resilience.Execute(ctx, p.breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.producer.PublishEvent(ctx, topic, event)
	})
	duration := time.Since(start)

	success := err == nil
	p.metrics.RecordKafkaPublish(topic, event.Type, success, duration)
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// Breaker exposes the producer's circuit breaker for health reporting
func (p *InstrumentedProducer) Breaker() *resilience.CircuitBreaker {
	return p.breaker
}
