package models

import "time"

// Cart is a user's single active cart, scoped to one restaurant.
type Cart struct {
	ID           string      `json:"id" db:"id" gorm:"primaryKey"`
	UserID       string      `json:"user_id" db:"user_id" gorm:"index"`
	RestaurantID string      `json:"restaurant_id" db:"restaurant_id"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	Items        []CartItem  `json:"items" db:"-" gorm:"-"`
	Restaurant   *Restaurant `json:"restaurant,omitempty" db:"-" gorm:"-"`
}

type CartItem struct {
	ID                  string    `json:"id" db:"id" gorm:"primaryKey"`
	CartID              string    `json:"cart_id" db:"cart_id" gorm:"index"`
	MenuItemID          string    `json:"menu_item_id" db:"menu_item_id"`
	Quantity            int       `json:"quantity" db:"quantity"`
	SpecialInstructions *string   `json:"special_instructions,omitempty" db:"special_instructions"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	MenuItem            *MenuItem `json:"menu_item,omitempty" db:"-" gorm:"-"`
}

// LineTotal is unit price times quantity. Lines whose menu item is unknown count as zero.
func (i CartItem) LineTotal() float64 {
	if i.MenuItem == nil {
		return 0
	}
	return i.MenuItem.Price * float64(i.Quantity)
}
