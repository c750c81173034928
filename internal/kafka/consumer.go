package kafka

import (
	"context"
	"encoding/json"

	"ms-ordering/internal/models"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader}
}

// Start consumes ledger events until the context is canceled. Messages
// that fail to decode are skipped.
func (c *Consumer) Start(ctx context.Context, handler func(event models.LedgerEvent), onError func(err error)) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			onError(err)
			continue
		}

		var event models.LedgerEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			onError(err)
			continue
		}
		handler(event)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
