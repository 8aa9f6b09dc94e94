package models

// CapturePaymentRequest asks the payment service to charge an order.
type CapturePaymentRequest struct {
	OrderNumber string        `json:"order_number"`
	UserID      string        `json:"user_id"`
	Method      PaymentMethod `json:"method"`
	Amount      float64       `json:"amount"`
}

type CapturePaymentResponse struct {
	PaymentID string        `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
}

type NotificationType string

const NotificationOrderConfirmation NotificationType = "order_confirmation"

// Notification is a message delivered to a user by the notification service.
type Notification struct {
	UserID  string            `json:"user_id"`
	Type    NotificationType  `json:"type"`
	Channel string            `json:"channel"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
}
