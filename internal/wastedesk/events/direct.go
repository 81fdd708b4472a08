package events

import (
	"context"

	"go.uber.org/zap"
)

// DirectProducer hands events straight to a handler in-process. It is used
// when no Kafka brokers are configured so that the audit log keeps filling.
type DirectProducer struct {
	handler Handler
	logger  *zap.Logger
}

func NewDirectProducer(handler Handler, logger *zap.Logger) *DirectProducer {
	return &DirectProducer{handler: handler, logger: logger.Named("direct_producer")}
}

func (p *DirectProducer) Produce(eventType EventType, resourceID string, payload any) {
	ev, err := NewEvent(eventType, resourceID, payload)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
		return
	}
	if p.handler == nil {
		return
	}
	if err := p.handler(context.Background(), ev); err != nil {
		p.logger.Error("Failed to handle event",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.String("resource_id", resourceID),
		)
	}
}

// NopProducer discards every event.
type NopProducer struct{}

func (NopProducer) Produce(EventType, string, any) {}
