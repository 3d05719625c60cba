// internal/models/offer.go
package models

import (
	"github.com/google/uuid"
)

// CarSellOffer is a negotiation between one buyer and one car's owner.
// Status is written by the seller, BuyerStatus by the buyer.
type CarSellOffer struct {
	BaseModel
	CarID       uuid.UUID   `json:"car_id" gorm:"type:uuid;not null;index"`
	BuyerID     uuid.UUID   `json:"buyer_id" gorm:"type:uuid;not null;index"`
	Amount      float64     `json:"amount" gorm:"type:decimal(12,2)"`
	Message     string      `json:"message,omitempty" gorm:"type:text"`
	Status      OfferStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	BuyerStatus OfferStatus `json:"buyer_status" gorm:"type:varchar(20);not null;default:'pending'"`

	// Relationships
	Car *Car `json:"car,omitempty" gorm:"foreignKey:CarID"`
}

// BothAccepted reports whether the two sides currently agree on the sale.
func (o *CarSellOffer) BothAccepted() bool {
	return o.Status == OfferStatusAccepted && o.BuyerStatus == OfferStatusAccepted
}

// Closed reports whether either side has rejected the offer.
func (o *CarSellOffer) Closed() bool {
	return o.Status == OfferStatusRejected || o.BuyerStatus == OfferStatusRejected
}

// OfferStatusEvent records one change to one side of an offer.
type OfferStatusEvent struct {
	BaseModel
	OfferID   uuid.UUID        `json:"offer_id" gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID        `json:"actor_id" gorm:"type:uuid;not null"`
	Field     OfferStatusField `json:"field" gorm:"type:varchar(20);not null"`
	OldStatus OfferStatus      `json:"old_status" gorm:"type:varchar(20);not null"`
	NewStatus OfferStatus      `json:"new_status" gorm:"type:varchar(20);not null"`
}
