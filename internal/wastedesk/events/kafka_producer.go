package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	EntityCreated    EventType = "entity_created"
	EntityUpdated    EventType = "entity_updated"
	EntityDeleted    EventType = "entity_deleted"
	WasteTypeCreated EventType = "waste_type_created"
	WasteTypeUpdated EventType = "waste_type_updated"
	WasteTypeDeleted EventType = "waste_type_deleted"
	AgreementCreated EventType = "agreement_created"
	AgreementUpdated EventType = "agreement_updated"
	AgreementDeleted EventType = "agreement_deleted"
	OrderTypeCreated EventType = "order_type_created"
	OrderTypeUpdated EventType = "order_type_updated"
	OrderTypeDeleted EventType = "order_type_deleted"
	OrderCreated     EventType = "order_created"
	OrderUpdated     EventType = "order_updated"
	OrderDeleted     EventType = "order_deleted"
)

// Event is a domain change notification.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	ResourceID string          `json:"resourceId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEvent snapshots payload into an event.
func NewEvent(eventType EventType, resourceID string, payload any) (Event, error) {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ResourceID: resourceID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := jsonMarshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to serialize payload: %w", err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	// Create topic if it doesn't exist
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	return newProducer(writer, logger, 1000), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce enqueues an event. It never blocks; when the queue is full the event is dropped.
func (p *Producer) Produce(eventType EventType, resourceID string, payload any) {
	ev, err := NewEvent(eventType, resourceID, payload)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.String("resource_id", resourceID),
		)
		return
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("resource_id", resourceID),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			for {
				select {
				case event := <-p.events:
					p.sendEvent(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("resource_id", event.ResourceID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("resource_id", event.ResourceID),
		)
	}
}

// Close flushes queued events and closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
