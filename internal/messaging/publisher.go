package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const serviceName = "orders-service"

type Publisher struct {
	client *RabbitMQClient
	log    *zap.Logger
}

func NewPublisher(client *RabbitMQClient, log *zap.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

func (p *Publisher) Publish(event NotificationEvent) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("no connection to RabbitMQ")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CorrelationID == uuid.Nil {
		event.CorrelationID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Service = serviceName

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	routingKey := fmt.Sprintf("orders.%s.%s", event.Service, string(event.EventType))

	channel := p.client.Channel()
	err = channel.Publish(
		p.client.config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.Timestamp,
			Headers: amqp.Table{
				"event_type":     string(event.EventType),
				"correlation_id": event.CorrelationID.String(),
				"service":        event.Service,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	p.log.Debug("event published",
		zap.String("routing_key", routingKey),
		zap.String("event_type", string(event.EventType)))
	return nil
}

func (p *Publisher) PublishWithRetry(event NotificationEvent, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := p.Publish(event); err != nil {
			lastErr = err
			p.log.Warn("event publish failed",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", maxRetries),
				zap.Error(err))
			if i < maxRetries-1 {
				time.Sleep(time.Second * time.Duration(i+1))
				continue
			}
		} else {
			return nil
		}
	}
	return fmt.Errorf("event publish failed after %d attempts: %w", maxRetries, lastErr)
}
