package kafka

import (
	"fmt"

	"ms-ordering/internal/logger"
	"ms-ordering/internal/models"
)

// LogPublisher satisfies the ledger's publisher contract without a
// broker. Used when Kafka is disabled or in mock mode.
type LogPublisher struct {
	Logger *logger.Logger
}

func (p *LogPublisher) PublishOrderCreated(tableID string, order models.Order) error {
	p.Logger.LogKafka("MOCK", "order created", fmt.Sprintf("table %s order %s seq %d", tableID, order.ID, order.SequenceNumber))
	return nil
}

func (p *LogPublisher) PublishOrderStatusChanged(tableID string, order models.Order) error {
	p.Logger.LogKafka("MOCK", "order status", fmt.Sprintf("table %s order %s now %s", tableID, order.ID, order.Status))
	return nil
}

func (p *LogPublisher) PublishSessionSettled(session models.Session) error {
	p.Logger.LogKafka("MOCK", "session settled", fmt.Sprintf("table %s session %s total %.2f", session.TableID, session.ID, session.TotalAmount))
	return nil
}
