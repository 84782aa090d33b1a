package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dresperanto/studio-flora/internal/events"
)

// fulfillmentLogger tails order.created events so shop staff see incoming
// work without refreshing the dashboard.
type fulfillmentLogger struct {
	logger *logrus.Logger
}

func (f *fulfillmentLogger) HandleOrderCreated(event events.OrderCreatedEvent) error {
	f.logger.WithFields(logrus.Fields{
		"order_number":         event.OrderNumber,
		"customer":             event.CustomerName,
		"occasion":             event.Occasion,
		"delivery_type":        event.DeliveryType,
		"pickup_delivery_date": event.PickupDeliveryDate.Format("2006-01-02"),
		"total_amount":         event.TotalAmount,
	}).Info("New order received for fulfillment")
	return nil
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	kafkaBrokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	groupID := getEnv("CONSUMER_GROUP", "fulfillment-monitor")

	consumer, err := events.NewKafkaConsumer(kafkaBrokers, groupID, &fulfillmentLogger{logger: logger}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down fulfillment monitor...")
		cancel()
	}()

	logger.WithField("brokers", kafkaBrokers).Info("Fulfillment monitor started")
	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Consumer stopped with error")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
