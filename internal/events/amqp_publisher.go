package events

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/interfaces"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var _ interfaces.OrderEventPublisher = (*AMQPPublisher)(nil)

// AMQPPublisher publishes order events to a RabbitMQ topic exchange, routed
// by event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	logger   *logging.Logger
}

// NewAMQPPublisher dials the broker and declares the durable exchange.
func NewAMQPPublisher(cfg config.AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		exchange: cfg.Exchange,
		logger:   logging.NewLogger("amqp-publisher"),
	}, nil
}

func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	event, err := NewOrderPlacedEvent(ctx, order)
	if err != nil {
		return err
	}

	msg, err := amqpPublishing(event)
	if err != nil {
		return err
	}

	// Channels are not safe for concurrent publishing.
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id": event.ID,
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"order_id":   event.OrderID,
		"exchange":   p.exchange,
	})
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.logger.Info("Closing AMQP publisher")
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

func amqpPublishing(event *OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Timestamp:     event.Timestamp,
		Type:          string(event.Type),
		Body:          body,
	}, nil
}
