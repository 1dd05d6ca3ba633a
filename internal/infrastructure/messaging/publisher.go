package messaging

import (
	"fmt"
	"strconv"
	"sync"

	"bank-api/internal/infrastructure/messaging/kafka"
)

// EventPublisher defines the interface for publishing completed ledger
// operations. Collapsed from the teacher's six operation-specific
// methods to one, since internal/domain/money represents every mutation
// (deposit, withdraw, card_transaction, transfer_in/out, refund,
// exchange) as the same Operation shape.
type EventPublisher interface {
	PublishOperationCompleted(event OperationCompletedEvent) error
	Close() error
	IsHealthy() bool
}

// KafkaEventPublisher implements EventPublisher using Kafka. It
// publishes through the async producer: an operation event is a
// collector-style side-channel the same way storage.Pool.StoreAsync is,
// never something a request blocks on.
type KafkaEventPublisher struct {
	producer *kafka.AsyncProducer
}

// NewKafkaEventPublisher creates a new Kafka event publisher.
func NewKafkaEventPublisher(config *kafka.Config) (*KafkaEventPublisher, error) {
	producer, err := kafka.NewAsyncProducer(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaEventPublisher{producer: producer}, nil
}

// PublishOperationCompleted publishes one operation, keyed by account id
// so that every event for an account lands on the same partition.
func (p *KafkaEventPublisher) PublishOperationCompleted(event OperationCompletedEvent) error {
	key := strconv.Itoa(event.AccountID)
	return p.producer.PublishEventAsync(kafka.TopicOperations, key, event)
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

func (p *KafkaEventPublisher) IsHealthy() bool {
	return p.producer.IsHealthy()
}

// NoOpEventPublisher is a no-op implementation, used when Kafka isn't
// configured (KAFKA_BROKERS unset) or in tests.
type NoOpEventPublisher struct{}

func NewNoOpEventPublisher() *NoOpEventPublisher { return &NoOpEventPublisher{} }

func (p *NoOpEventPublisher) PublishOperationCompleted(OperationCompletedEvent) error { return nil }
func (p *NoOpEventPublisher) Close() error                                           { return nil }
func (p *NoOpEventPublisher) IsHealthy() bool                                         { return true }

// EventCapture is an in-memory EventPublisher for tests: it records
// every event published instead of sending it anywhere.
type EventCapture struct {
	mu     sync.Mutex
	events []OperationCompletedEvent
}

func NewEventCapture() *EventCapture {
	return &EventCapture{}
}

func (e *EventCapture) PublishOperationCompleted(event OperationCompletedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *EventCapture) Close() error    { return nil }
func (e *EventCapture) IsHealthy() bool { return true }

// Events returns a copy of everything captured so far.
func (e *EventCapture) Events() []OperationCompletedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]OperationCompletedEvent, len(e.events))
	copy(out, e.events)
	return out
}
