package kafka

import (
	"context"
	"encoding/json"

	"ms-ordering/internal/models"
)

// Topics names the ledger event streams.
type Topics struct {
	OrderCreated   string
	OrderStatus    string
	SessionSettled string
}

func DefaultTopics() Topics {
	return Topics{
		OrderCreated:   "ordering.orders.created",
		OrderStatus:    "ordering.orders.status",
		SessionSettled: "ordering.sessions.settled",
	}
}

// EventPublisher streams ledger events to Kafka. Messages are keyed by
// table id so one table's events stay ordered within a partition.
type EventPublisher struct {
	Producer *Producer
	Topics   Topics
}

func NewEventPublisher(producer *Producer, topics Topics) *EventPublisher {
	return &EventPublisher{Producer: producer, Topics: topics}
}

func (p *EventPublisher) PublishOrderCreated(tableID string, order models.Order) error {
	return p.publish(p.Topics.OrderCreated, tableID, models.LedgerEvent{
		Type:    models.EventOrderCreated,
		TableID: tableID,
		Order:   &order,
	})
}

func (p *EventPublisher) PublishOrderStatusChanged(tableID string, order models.Order) error {
	return p.publish(p.Topics.OrderStatus, tableID, models.LedgerEvent{
		Type:    models.EventOrderStatus,
		TableID: tableID,
		Order:   &order,
	})
}

func (p *EventPublisher) PublishSessionSettled(session models.Session) error {
	return p.publish(p.Topics.SessionSettled, session.TableID, models.LedgerEvent{
		Type:    models.EventSessionSettled,
		TableID: session.TableID,
		Session: &session,
	})
}

func (p *EventPublisher) publish(topic, key string, event models.LedgerEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Producer.Publish(context.Background(), topic, key, value)
}
