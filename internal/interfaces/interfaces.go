// Package interfaces declares the collaborators the storefront services depend on.
package interfaces

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// OrderEventPublisher announces order lifecycle events to downstream systems.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
	Close() error
}

type PaymentClient interface {
	CapturePayment(ctx context.Context, req *models.CapturePaymentRequest) (*models.CapturePaymentResponse, error)
}

type NotificationSender interface {
	SendNotification(ctx context.Context, notification *models.Notification) error
}

// StatusBroadcaster pushes status events to a user's live connections.
type StatusBroadcaster interface {
	Broadcast(userID string, event models.StatusEvent) int
}
