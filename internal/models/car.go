// internal/models/car.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Car is a listing. OwnerID never changes after creation and Sold flips to
// true at most once, from the offer finalize step.
type Car struct {
	BaseModel
	OwnerID     uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Make        string     `json:"make" gorm:"size:100;not null;index"`
	Model       string     `json:"model" gorm:"size:100;not null"`
	Year        int        `json:"year"`
	Mileage     int        `json:"mileage" gorm:"default:0"`
	FuelType    FuelType   `json:"fuel_type,omitempty" gorm:"type:varchar(20)"`
	Color       string     `json:"color,omitempty" gorm:"size:50"`
	Price       float64    `json:"price" gorm:"type:decimal(12,2);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Features    []string   `json:"features,omitempty" gorm:"type:text;serializer:json"`
	ImageURL    string     `json:"image_url" gorm:"size:1024"`
	Sold        bool       `json:"sold" gorm:"not null;default:false;index"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
	SoldOfferID *uuid.UUID `json:"sold_offer_id,omitempty" gorm:"type:uuid"`

	// Relationships
	Offers []CarSellOffer `json:"offers,omitempty" gorm:"foreignKey:CarID"`
}

// CarListing is the marketplace view of a car: ownership and sale-audit
// fields are left out.
type CarListing struct {
	ID          uuid.UUID  `json:"id"`
	Make        string     `json:"make"`
	Model       string     `json:"model"`
	Year        int        `json:"year"`
	Mileage     int        `json:"mileage"`
	FuelType    FuelType   `json:"fuel_type,omitempty"`
	Color       string     `json:"color,omitempty"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	Features    []string   `json:"features,omitempty"`
	ImageURL    string     `json:"image_url"`
	Sold        bool       `json:"sold"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (c *Car) ToListing() CarListing {
	return CarListing{
		ID:          c.ID,
		Make:        c.Make,
		Model:       c.Model,
		Year:        c.Year,
		Mileage:     c.Mileage,
		FuelType:    c.FuelType,
		Color:       c.Color,
		Price:       c.Price,
		Description: c.Description,
		Features:    c.Features,
		ImageURL:    c.ImageURL,
		Sold:        c.Sold,
		SoldAt:      c.SoldAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func ToListings(cars []Car) []CarListing {
	listings := make([]CarListing, 0, len(cars))
	for i := range cars {
		listings = append(listings, cars[i].ToListing())
	}
	return listings
}
