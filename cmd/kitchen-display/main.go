// kitchen-display tails the ledger's Kafka topics and prints incoming
// orders and settlements for the kitchen screen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"ms-ordering/internal/config"
	"ms-ordering/internal/kafka"
	"ms-ordering/internal/logger"
	"ms-ordering/internal/models"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLogger := logger.NewLogger()
	defer appLogger.Close()

	topics := kafka.DefaultTopics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, topic := range []string{topics.OrderCreated, topics.OrderStatus, topics.SessionSettled} {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID)
		defer consumer.Close()

		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			appLogger.Info("KITCHEN", fmt.Sprintf("Listening on %s", topic))
			consumer.Start(ctx, func(event models.LedgerEvent) {
				display(appLogger, event)
			}, func(err error) {
				appLogger.Error("KITCHEN", fmt.Sprintf("consume %s: %v", topic, err))
			})
		}(topic)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("KITCHEN", "Shutting down")
	cancel()
	wg.Wait()
}

func display(log *logger.Logger, event models.LedgerEvent) {
	switch event.Type {
	case models.EventOrderCreated:
		if event.Order == nil {
			return
		}
		for _, item := range event.Order.Items {
			log.Info("KITCHEN", fmt.Sprintf("table %s order #%d: %d x %s",
				event.TableID, event.Order.SequenceNumber, item.Qty, item.Name))
		}
	case models.EventOrderStatus:
		if event.Order == nil {
			return
		}
		log.Info("KITCHEN", fmt.Sprintf("table %s order #%d is now %s",
			event.TableID, event.Order.SequenceNumber, event.Order.Status))
	case models.EventSessionSettled:
		if event.Session == nil {
			return
		}
		log.Info("KITCHEN", fmt.Sprintf("table %s settled, total %.2f",
			event.TableID, event.Session.TotalAmount))
	}
}
