package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeOrderPlaced        EventType = "order.placed"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

// OrderEvent is the envelope shared by every order event on the wire.
type OrderEvent struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	OrderID       string            `json:"order_id"`
	UserID        string            `json:"user_id"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

func newEvent(ctx context.Context, eventType EventType, orderID, userID string, payload interface{}) (*OrderEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OrderEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		OrderID:       orderID,
		UserID:        userID,
		Data:          data,
		Metadata:      make(map[string]string),
		Timestamp:     time.Now().UTC(),
		CorrelationID: middleware.GetRequestID(ctx),
	}, nil
}

// NewOrderPlacedEvent wraps a freshly placed order.
func NewOrderPlacedEvent(ctx context.Context, order *models.Order) (*OrderEvent, error) {
	event, err := newEvent(ctx, EventTypeOrderPlaced, order.ID, order.UserID, order)
	if err != nil {
		return nil, err
	}
	event.Metadata["order_number"] = order.OrderNumber
	event.Metadata["restaurant_id"] = order.RestaurantID
	return event, nil
}

// DecodeStatusEvent reads a status change envelope. Fields missing from the
// payload are taken from the envelope.
func DecodeStatusEvent(raw []byte) (models.StatusEvent, error) {
	var envelope OrderEvent
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return models.StatusEvent{}, err
	}
	if envelope.Type != EventTypeOrderStatusChanged {
		return models.StatusEvent{}, fmt.Errorf("unexpected event type %q", envelope.Type)
	}

	var status models.StatusEvent
	if err := json.Unmarshal(envelope.Data, &status); err != nil {
		return models.StatusEvent{}, err
	}
	if status.OrderID == "" {
		status.OrderID = envelope.OrderID
	}
	if status.UserID == "" {
		status.UserID = envelope.UserID
	}
	if status.OccurredAt.IsZero() {
		status.OccurredAt = envelope.Timestamp
	}
	return status, nil
}
