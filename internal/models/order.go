package models

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var statusSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

func (s OrderStatus) IsValid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	return s.position() >= 0
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo allows moving forward along the delivery sequence, or
// cancelling, from any non-terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.position() > s.position()
}

func (s OrderStatus) position() int {
	for i, st := range statusSequence {
		if st == s {
			return i
		}
	}
	return -1
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCOD    PaymentMethod = "cod"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet, PaymentMethodCOD:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Order struct {
	ID                    string        `json:"id" db:"id" gorm:"primaryKey"`
	UserID                string        `json:"user_id" db:"user_id" gorm:"index"`
	RestaurantID          string        `json:"restaurant_id" db:"restaurant_id"`
	AddressID             *string       `json:"address_id,omitempty" db:"address_id"`
	OrderNumber           string        `json:"order_number" db:"order_number" gorm:"uniqueIndex"`
	Status                OrderStatus   `json:"status" db:"status"`
	Subtotal              float64       `json:"subtotal" db:"subtotal"`
	DeliveryFee           float64       `json:"delivery_fee" db:"delivery_fee"`
	Tax                   float64       `json:"tax" db:"tax"`
	Discount              float64       `json:"discount" db:"discount"`
	TotalAmount           float64       `json:"total_amount" db:"total_amount"`
	PaymentMethod         PaymentMethod `json:"payment_method" db:"payment_method"`
	PaymentStatus         PaymentStatus `json:"payment_status" db:"payment_status"`
	DeliveryAddressLine1  string        `json:"delivery_address_line1" db:"delivery_address_line1" gorm:"column:delivery_address_line1"`
	DeliveryAddressLine2  *string       `json:"delivery_address_line2,omitempty" db:"delivery_address_line2" gorm:"column:delivery_address_line2"`
	DeliveryCity          string        `json:"delivery_city" db:"delivery_city"`
	DeliveryPostalCode    *string       `json:"delivery_postal_code,omitempty" db:"delivery_postal_code"`
	DeliveryInstructions  *string       `json:"delivery_instructions,omitempty" db:"delivery_instructions"`
	EstimatedDeliveryTime *time.Time    `json:"estimated_delivery_time,omitempty" db:"estimated_delivery_time"`
	DeliveredAt           *time.Time    `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at" db:"updated_at"`
	Restaurant            *Restaurant   `json:"restaurant,omitempty" db:"-" gorm:"-"`
	OrderItems            []OrderItem   `json:"order_items,omitempty" db:"-" gorm:"-"`
}

// OrderItem is a snapshot of a cart line at purchase time.
type OrderItem struct {
	ID                  string  `json:"id" db:"id" gorm:"primaryKey"`
	OrderID             string  `json:"order_id" db:"order_id" gorm:"index"`
	MenuItemID          *string `json:"menu_item_id,omitempty" db:"menu_item_id"`
	ItemName            string  `json:"item_name" db:"item_name"`
	ItemPrice           float64 `json:"item_price" db:"item_price"`
	Quantity            int     `json:"quantity" db:"quantity"`
	SpecialInstructions *string `json:"special_instructions,omitempty" db:"special_instructions"`
}

// StatusEvent is a status change emitted by the order backend.
type StatusEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      string      `json:"user_id"`
	Previous    OrderStatus `json:"previous_status,omitempty"`
	Status      OrderStatus `json:"status"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
