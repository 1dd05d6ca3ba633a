// Package events implements the in-process publish/subscribe broker
// behind the /events SSE endpoint. The broker itself is the teacher's
// original goroutine-owns-a-channel design unchanged; only the payload
// it carries is generalized from the teacher's single TransactionEvent
// shape to any account operation the new domain model can produce.
package events

import (
	"sync"
	"time"

	"bank-api/internal/domain/money"
)

// OperationEvent is what gets broadcast to SSE subscribers every time an
// actor persists a mutation.
type OperationEvent struct {
	AccountID int                    `json:"account_id"`
	Type      money.OperationType    `json:"type"`
	Status    money.OperationStatus  `json:"status"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Broker manages client subscriptions and broadcasts operation events.
type Broker struct {
	clients       map[chan OperationEvent]bool
	newClients    chan chan OperationEvent
	closedClients chan chan OperationEvent
	events        chan OperationEvent
}

var (
	// BrokerInstance is the global event broker (singleton).
	BrokerInstance *Broker
	brokerOnce     sync.Once
)

// GetBroker returns the singleton event broker instance.
func GetBroker() *Broker {
	brokerOnce.Do(func() {
		BrokerInstance = NewBroker()
	})
	return BrokerInstance
}

// NewBroker creates and starts a new Broker. Public for testing;
// production code uses GetBroker().
func NewBroker() *Broker {
	b := &Broker{
		clients:       make(map[chan OperationEvent]bool),
		newClients:    make(chan chan OperationEvent),
		closedClients: make(chan chan OperationEvent),
		events:        make(chan OperationEvent),
	}
	go b.start()
	return b
}

func (b *Broker) start() {
	for {
		select {
		case client := <-b.newClients:
			b.clients[client] = true
		case client := <-b.closedClients:
			delete(b.clients, client)
			close(client)
		case event := <-b.events:
			for client := range b.clients {
				client <- event
			}
		}
	}
}

// Subscribe registers a new listener and returns its channel.
func (b *Broker) Subscribe() chan OperationEvent {
	ch := make(chan OperationEvent)
	b.newClients <- ch
	return ch
}

// Unsubscribe removes a listener.
func (b *Broker) Unsubscribe(ch chan OperationEvent) {
	b.closedClients <- ch
}

// Publish sends the given event to all connected clients.
func (b *Broker) Publish(event OperationEvent) {
	b.events <- event
}

// PublishOperations is a convenience wrapper the actor's OnApplied hook
// calls with every operation a mutation recorded.
func (b *Broker) PublishOperations(accountID int, ops []money.Operation) {
	for _, op := range ops {
		b.Publish(OperationEvent{
			AccountID: accountID,
			Type:      op.Type,
			Status:    op.Status,
			Data:      op.Data,
			Timestamp: op.DateTime,
		})
	}
}
