package models

import "github.com/lib/pq"

type Restaurant struct {
	ID              string         `json:"id" db:"id" gorm:"primaryKey"`
	Name            string         `json:"name" db:"name"`
	Description     string         `json:"description" db:"description"`
	ImageURL        string         `json:"image_url" db:"image_url"`
	BannerURL       string         `json:"banner_url" db:"banner_url"`
	CuisineTypes    pq.StringArray `json:"cuisine_types" db:"cuisine_types" gorm:"type:text"`
	Rating          float64        `json:"rating" db:"rating"`
	TotalRatings    int            `json:"total_ratings" db:"total_ratings"`
	DeliveryTime    string         `json:"delivery_time" db:"delivery_time"`
	MinimumOrder    float64        `json:"minimum_order" db:"minimum_order"`
	DeliveryFee     float64        `json:"delivery_fee" db:"delivery_fee"`
	PreparationTime int            `json:"preparation_time" db:"preparation_time"`
	AddressLine1    *string        `json:"address_line1,omitempty" db:"address_line1" gorm:"column:address_line1"`
	City            *string        `json:"city,omitempty" db:"city"`
	Phone           *string        `json:"phone,omitempty" db:"phone"`
	IsOpen          bool           `json:"is_open" db:"is_open"`
	IsActive        bool           `json:"is_active" db:"is_active"`
}

type Category struct {
	ID           string  `json:"id" db:"id" gorm:"primaryKey"`
	Name         string  `json:"name" db:"name"`
	Description  string  `json:"description" db:"description"`
	Icon         string  `json:"icon" db:"icon"`
	ImageURL     *string `json:"image_url,omitempty" db:"image_url"`
	DisplayOrder int     `json:"display_order" db:"display_order"`
	IsActive     bool    `json:"is_active" db:"is_active"`
}

type SpiceLevel string

const (
	SpiceMild     SpiceLevel = "mild"
	SpiceMedium   SpiceLevel = "medium"
	SpiceHot      SpiceLevel = "hot"
	SpiceExtraHot SpiceLevel = "extra_hot"
)

type MenuItem struct {
	ID              string      `json:"id" db:"id" gorm:"primaryKey"`
	RestaurantID    string      `json:"restaurant_id" db:"restaurant_id" gorm:"index"`
	CategoryID      string      `json:"category_id" db:"category_id"`
	Name            string      `json:"name" db:"name"`
	Description     string      `json:"description" db:"description"`
	ImageURL        string      `json:"image_url" db:"image_url"`
	Price           float64     `json:"price" db:"price"`
	DiscountPrice   *float64    `json:"discount_price,omitempty" db:"discount_price"`
	IsVegetarian    bool        `json:"is_vegetarian" db:"is_vegetarian"`
	IsVegan         bool        `json:"is_vegan" db:"is_vegan"`
	IsBestseller    bool        `json:"is_bestseller" db:"is_bestseller"`
	IsAvailable     bool        `json:"is_available" db:"is_available"`
	Calories        *int        `json:"calories,omitempty" db:"calories"`
	PreparationTime int         `json:"preparation_time" db:"preparation_time"`
	SpiceLevel      *SpiceLevel `json:"spice_level,omitempty" db:"spice_level"`
}
