package messaging

import (
	"context"
	"errors"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/kafka"
	"github.com/wms-platform/lpn-service/pkg/logging"
)

// KafkaPublisher sends committed events straight to Kafka. It is used with
// stores that have no transactional outbox.
type KafkaPublisher struct {
	producer kafka.EventProducer
	mapper   *EventMapper
	logger   *logging.Logger
}

func NewKafkaPublisher(producer kafka.EventProducer, mapper *EventMapper, logger *logging.Logger) *KafkaPublisher {
	if mapper == nil {
		mapper = NewEventMapper(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &KafkaPublisher{producer: producer, mapper: mapper, logger: logger.WithComponent("kafka-publisher")}
}

// Publish sends every record and reports all failures together. A failed
// record does not stop the rest.
func (p *KafkaPublisher) Publish(ctx context.Context, records []domain.EventRecord) error {
	var errs []error
	for _, rec := range records {
		if err := p.producer.PublishEvent(ctx, Topic(rec), p.mapper.ToCloudEvent(ctx, rec)); err != nil {
			p.logger.WithContext(ctx).Warn("Failed to publish event",
				"streamId", rec.StreamID,
				"version", rec.Version,
				"eventType", rec.EventType,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domain.EventPublisher = (*KafkaPublisher)(nil)
