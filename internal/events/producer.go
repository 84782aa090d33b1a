package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/dresperanto/studio-flora/pkg/models"
)

const (
	OrderCreatedTopic = "flora.order.created"
)

// OrderCreatedEvent is published after an order is durably stored. The
// fulfillment side (florists, delivery planning) consumes it; submission
// never waits on consumers.
type OrderCreatedEvent struct {
	OrderID            string    `json:"order_id"`
	OrderNumber        string    `json:"order_number"`
	CustomerName       string    `json:"customer_name"`
	Occasion           string    `json:"occasion"`
	DeliveryType       string    `json:"delivery_type"`
	PickupDeliveryDate time.Time `json:"pickup_delivery_date"`
	TotalAmount        float64   `json:"total_amount"`
	CreatedAt          time.Time `json:"created_at"`
	EventTime          time.Time `json:"event_time"`
}

func NewOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		CustomerName:       order.Customer.FirstName + " " + order.Customer.LastName,
		Occasion:           order.Occasion,
		DeliveryType:       order.DeliveryType,
		PickupDeliveryDate: order.PickupDeliveryDate,
		TotalAmount:        order.TotalAmount,
		CreatedAt:          order.CreatedAt,
	}
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) PublishOrderCreated(event OrderCreatedEvent) error {
	event.EventTime = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: OrderCreatedTopic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":        OrderCreatedTopic,
		"partition":    partition,
		"offset":       offset,
		"order_number": event.OrderNumber,
	}).Info("Order event published to Kafka")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
