package models

import "time"

type Profile struct {
	ID             string    `json:"id" db:"id" gorm:"primaryKey"`
	UserID         string    `json:"user_id" db:"user_id" gorm:"uniqueIndex"`
	FullName       string    `json:"full_name" db:"full_name"`
	Email          string    `json:"email" db:"email"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	ProfilePicture *string   `json:"profile_picture,omitempty" db:"profile_picture"`
	AddressLine1   *string   `json:"address_line1,omitempty" db:"address_line1" gorm:"column:address_line1"`
	AddressLine2   *string   `json:"address_line2,omitempty" db:"address_line2" gorm:"column:address_line2"`
	City           *string   `json:"city,omitempty" db:"city"`
	State          *string   `json:"state,omitempty" db:"state"`
	PostalCode     *string   `json:"postal_code,omitempty" db:"postal_code"`
	Country        *string   `json:"country,omitempty" db:"country"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DeliveryAddress is the address captured at checkout.
type DeliveryAddress struct {
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	PostalCode   *string `json:"postal_code,omitempty"`
}

// AddressFromProfile pre-fills a delivery address from the saved profile.
func AddressFromProfile(p *Profile) DeliveryAddress {
	var addr DeliveryAddress
	if p == nil {
		return addr
	}
	if p.AddressLine1 != nil {
		addr.AddressLine1 = *p.AddressLine1
	}
	if p.City != nil {
		addr.City = *p.City
	}
	addr.AddressLine2 = p.AddressLine2
	addr.PostalCode = p.PostalCode
	return addr
}
