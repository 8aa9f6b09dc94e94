package service

import (
	"strings"
	"unicode/utf8"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const maxInstructionsLength = 500

// ValidateDeliveryAddress checks the fields checkout requires.
func ValidateDeliveryAddress(addr models.DeliveryAddress) error {
	if strings.TrimSpace(addr.AddressLine1) == "" {
		return errors.NewValidationError("address_line1", "address line 1 is required")
	}

	if strings.TrimSpace(addr.City) == "" {
		return errors.NewValidationError("city", "city is required")
	}

	return nil
}

// ValidatePaymentMethod rejects methods the storefront does not offer.
func ValidatePaymentMethod(method models.PaymentMethod) error {
	if method == "" {
		return errors.NewValidationError("payment_method", "payment method is required")
	}
	if !method.IsValid() {
		return errors.NewValidationError("payment_method", "invalid payment method")
	}
	return nil
}

// ValidateQuantity requires at least one unit.
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return errors.NewValidationError("quantity", "quantity must be at least 1")
	}
	return nil
}

// ValidateMenuItemForCart checks the item can be ordered from restaurantID.
func ValidateMenuItemForCart(item models.MenuItem, restaurantID string) error {
	if restaurantID == "" {
		return errors.NewValidationError("restaurant_id", "restaurant ID is required")
	}

	if item.RestaurantID != restaurantID {
		return errors.NewValidationError("menu_item_id", "menu item does not belong to this restaurant")
	}

	if !item.IsAvailable {
		return errors.NewValidationError("menu_item_id", "menu item is not available")
	}

	return nil
}

// SanitizeInstructions trims free-text instructions and caps their length.
// Blank input yields nil.
func SanitizeInstructions(s *string) *string {
	if s == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}

	if len(trimmed) > maxInstructionsLength {
		// Cut on a rune boundary so the result stays valid UTF-8.
		cut := maxInstructionsLength
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	return &trimmed
}

// ValidateStatusEvent checks an incoming backend status event before it is shown to a user.
func ValidateStatusEvent(event models.StatusEvent) error {
	if event.OrderID == "" {
		return errors.NewValidationError("order_id", "order ID is required")
	}

	if event.UserID == "" {
		return errors.NewValidationError("user_id", "user ID is required")
	}

	if !event.Status.IsValid() {
		return errors.NewValidationError("status", "invalid order status")
	}

	if event.Previous != "" && !event.Previous.CanTransitionTo(event.Status) {
		return errors.NewValidationError("status", "invalid status transition")
	}

	return nil
}
