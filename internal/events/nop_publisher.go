package events

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/interfaces"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var _ interfaces.OrderEventPublisher = (*NopPublisher)(nil)

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct {
	logger *logging.Logger
}

func NewNopPublisher() *NopPublisher {
	return &NopPublisher{logger: logging.NewLogger("nop-publisher")}
}

func (p *NopPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Dropping order placed event", logging.Fields{"order_id": order.ID})
	return nil
}

func (p *NopPublisher) Close() error {
	return nil
}

// NewPublisher builds the publisher selected by cfg.Events.Driver.
func NewPublisher(cfg *config.Config) (interfaces.OrderEventPublisher, error) {
	switch cfg.Events.Driver {
	case config.EventsKafka:
		return NewKafkaPublisher(cfg.Kafka), nil
	case config.EventsAMQP:
		return NewAMQPPublisher(cfg.AMQP)
	default:
		return NewNopPublisher(), nil
	}
}
