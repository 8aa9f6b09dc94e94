package service

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// TaxRate is applied to the item subtotal only, never to the delivery fee.
const TaxRate = 0.05

// OrderTotals represents the pricing breakdown for an order.
type OrderTotals struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// CalculateTax computes tax on subtotal. The value is not rounded.
func CalculateTax(subtotal float64) float64 {
	return subtotal * TaxRate
}

// CalculateOrderTotals computes the full order breakdown.
func CalculateOrderTotals(subtotal, deliveryFee float64) OrderTotals {
	tax := CalculateTax(subtotal)
	return OrderTotals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Tax:         tax,
		Discount:    0,
		Total:       subtotal + deliveryFee + tax,
	}
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Formatted returns the display strings for each component.
func (t OrderTotals) Formatted() map[string]string {
	return map[string]string{
		"subtotal":     FormatAmount(t.Subtotal),
		"delivery_fee": FormatAmount(t.DeliveryFee),
		"tax":          FormatAmount(t.Tax),
		"discount":     FormatAmount(t.Discount),
		"total":        FormatAmount(t.Total),
	}
}

// CanCheckout reports whether an order may be placed: the cart must hold
// items and the address needs a first line and a city.
func CanCheckout(view CartView, addr models.DeliveryAddress) bool {
	if view.Cart == nil || len(view.Cart.Items) == 0 {
		return false
	}
	return strings.TrimSpace(addr.AddressLine1) != "" && strings.TrimSpace(addr.City) != ""
}
