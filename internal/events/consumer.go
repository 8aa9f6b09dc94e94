package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// StatusHandler receives decoded status changes.
type StatusHandler interface {
	HandleStatusEvent(ctx context.Context, event models.StatusEvent) error
}

// KafkaConsumer consumes order status events from Kafka.
type KafkaConsumer struct {
	reader  *kafka.Reader
	handler StatusHandler
	logger  *logging.Logger
	stopCh  chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based status event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, handler StatusHandler) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.StatusTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader:  reader,
		handler: handler,
		logger:  logging.NewLogger("kafka-consumer"),
		stopCh:  make(chan struct{}),
	}
}

// Start begins consuming events.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer", logging.Fields{"topic": c.reader.Config().Topic})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if eventType := headerValue(msg.Headers, "event_type"); eventType != "" && EventType(eventType) != EventTypeOrderStatusChanged {
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": eventType})
		return
	}

	event, err := DecodeStatusEvent(msg.Value)
	if err != nil {
		c.logger.Error("Failed to decode status event", logging.Fields{
			"offset": msg.Offset,
			"error":  err.Error(),
		})
		return
	}

	if err := c.handler.HandleStatusEvent(ctx, event); err != nil {
		c.logger.Error("Failed to handle status event", logging.Fields{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
