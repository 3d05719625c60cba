// internal/services/offer_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/car-marketplace-backend/internal/config"
	"github.com/javajoker/car-marketplace-backend/internal/database"
	"github.com/javajoker/car-marketplace-backend/internal/models"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

// OfferService runs the two-sided negotiation on a car. Every status change
// happens in one transaction that locks the offer and then its car, so the
// sale is decided against committed state.
type OfferService struct {
	db   *gorm.DB
	cars *CarService
	cfg  config.NegotiationConfig
}

type CreateOfferRequest struct {
	CarID   uuid.UUID `json:"car_id" validate:"required"`
	Amount  float64   `json:"amount" validate:"gte=0"`
	Message string    `json:"message,omitempty" validate:"max=2000"`
}

// OfferUpdateResult is returned by the buyer-side update. Sold is true only
// for the call that completed the sale.
type OfferUpdateResult struct {
	Offer *models.CarSellOffer
	Car   *models.Car
	Sold  bool
}

func NewOfferService(db *gorm.DB, cars *CarService, cfg config.NegotiationConfig) *OfferService {
	return &OfferService{
		db:   db,
		cars: cars,
		cfg:  cfg,
	}
}

func (s *OfferService) CreateOffer(ctx context.Context, buyerID uuid.UUID, req *CreateOfferRequest) (*models.CarSellOffer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	var offer *models.CarSellOffer
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		car, err := s.cars.lockCar(tx, req.CarID)
		if err != nil {
			return err
		}

		if car.OwnerID == buyerID {
			return ErrSelfOffer
		}

		if car.Sold && s.cfg.BlockOffersOnSoldCars {
			return ErrCarSold
		}

		offer = &models.CarSellOffer{
			CarID:       car.ID,
			BuyerID:     buyerID,
			Amount:      req.Amount,
			Message:     req.Message,
			Status:      models.OfferStatusPending,
			BuyerStatus: models.OfferStatusPending,
		}
		if err := tx.Create(offer).Error; err != nil {
			return storageError(err, ErrCarNotFound, "create offer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"offer_id": offer.ID,
		"car_id":   offer.CarID,
		"buyer_id": buyerID,
	}).Info("Offer created")

	return offer, nil
}

// ListOffersByBuyer returns every offer the buyer has made, newest first.
func (s *OfferService) ListOffersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CarSellOffer, error) {
	var offers []models.CarSellOffer
	if err := s.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at desc").
		Find(&offers).Error; err != nil {
		return nil, storageError(err, ErrOfferNotFound, "list buyer offers")
	}
	return offers, nil
}

func (s *OfferService) ListOffersOnCar(ctx context.Context, requesterID, carID uuid.UUID) ([]models.CarSellOffer, error) {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}

	if s.cfg.RestrictCarOffersToOwner && car.OwnerID != requesterID {
		return nil, ErrNotCarOwner
	}

	var offers []models.CarSellOffer
	if err := s.db.WithContext(ctx).
		Where("car_id = ?", carID).
		Order("created_at desc").
		Find(&offers).Error; err != nil {
		return nil, storageError(err, ErrOfferNotFound, "list car offers")
	}
	return offers, nil
}

// SellerUpdateStatus sets the seller-side status. It never completes a sale
// on its own; the buyer's acceptance does.
func (s *OfferService) SellerUpdateStatus(ctx context.Context, offerID, actorID uuid.UUID, rawStatus string) (*models.CarSellOffer, error) {
	status, err := models.ParseOfferStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, rawStatus)
	}

	var offer *models.CarSellOffer
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		locked, car, err := s.lockOfferAndCar(tx, offerID)
		if err != nil {
			return err
		}
		offer = locked

		if !s.isSeller(offer, car, actorID) {
			if s.cfg.LegacySellerCheck {
				return ErrNotOfferBuyer
			}
			return ErrNotCarOwner
		}

		if err := checkOpen(offer, car); err != nil {
			return err
		}

		return s.setStatus(tx, offer, models.OfferFieldSeller, actorID, status)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"offer_id": offer.ID,
		"actor_id": actorID,
		"status":   offer.Status,
	}).Info("Seller updated offer status")

	return offer, nil
}

// BuyerUpdateStatus sets the buyer-side status and, when both sides have
// accepted, marks the car sold in the same transaction.
func (s *OfferService) BuyerUpdateStatus(ctx context.Context, offerID, actorID uuid.UUID, rawStatus string) (*OfferUpdateResult, error) {
	status, err := models.ParseOfferStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, rawStatus)
	}

	result := &OfferUpdateResult{}
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		offer, car, err := s.lockOfferAndCar(tx, offerID)
		if err != nil {
			return err
		}
		result.Offer, result.Car = offer, car

		if offer.BuyerID != actorID {
			return ErrNotOfferBuyer
		}

		if err := checkOpen(offer, car); err != nil {
			return err
		}

		if err := s.setStatus(tx, offer, models.OfferFieldBuyer, actorID, status); err != nil {
			return err
		}

		if !offer.BothAccepted() {
			return nil
		}

		if err := s.cars.markSold(tx, car, offer.ID); err != nil {
			return err
		}
		result.Sold = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Sold {
		logrus.WithFields(logrus.Fields{
			"offer_id": result.Offer.ID,
			"car_id":   result.Car.ID,
			"buyer_id": actorID,
			"amount":   result.Offer.Amount,
		}).Info("Car sold")
	} else {
		logrus.WithFields(logrus.Fields{
			"offer_id": result.Offer.ID,
			"actor_id": actorID,
			"status":   result.Offer.BuyerStatus,
		}).Info("Buyer updated offer status")
	}

	return result, nil
}

// ListOfferEvents returns the status history of an offer, oldest first.
// Only the buyer and the car's owner may read it.
func (s *OfferService) ListOfferEvents(ctx context.Context, requesterID, offerID uuid.UUID) ([]models.OfferStatusEvent, error) {
	db := s.db.WithContext(ctx)

	var offer models.CarSellOffer
	if err := db.Preload("Car").First(&offer, "id = ?", offerID).Error; err != nil {
		return nil, storageError(err, ErrOfferNotFound, "get offer")
	}

	if offer.BuyerID != requesterID && (offer.Car == nil || offer.Car.OwnerID != requesterID) {
		return nil, ErrNotOfferParty
	}

	var events []models.OfferStatusEvent
	if err := db.Where("offer_id = ?", offerID).
		Order("created_at asc").
		Find(&events).Error; err != nil {
		return nil, storageError(err, ErrOfferNotFound, "list offer events")
	}
	return events, nil
}

// lockOfferAndCar takes the offer lock first and the car lock second. Every
// status update uses this order.
func (s *OfferService) lockOfferAndCar(tx *gorm.DB, offerID uuid.UUID) (*models.CarSellOffer, *models.Car, error) {
	var offer models.CarSellOffer
	if err := lockForUpdate(tx).First(&offer, "id = ?", offerID).Error; err != nil {
		return nil, nil, storageError(err, ErrOfferNotFound, "lock offer")
	}

	car, err := s.cars.lockCar(tx, offer.CarID)
	if err != nil {
		return nil, nil, err
	}
	return &offer, car, nil
}

func (s *OfferService) isSeller(offer *models.CarSellOffer, car *models.Car, actorID uuid.UUID) bool {
	if s.cfg.LegacySellerCheck {
		return offer.BuyerID == actorID
	}
	return car.OwnerID == actorID
}

func checkOpen(offer *models.CarSellOffer, car *models.Car) error {
	if car.Sold {
		return ErrCarSold
	}
	if offer.Closed() {
		return ErrOfferClosed
	}
	return nil
}

// setStatus writes one side of the offer and records the change. Writing
// the value a side already holds is a no-op.
func (s *OfferService) setStatus(tx *gorm.DB, offer *models.CarSellOffer, field models.OfferStatusField, actorID uuid.UUID, status models.OfferStatus) error {
	old := offer.Status
	if field == models.OfferFieldBuyer {
		old = offer.BuyerStatus
	}
	if old == status {
		return nil
	}

	if err := tx.Model(offer).Update(string(field), status).Error; err != nil {
		return storageError(err, ErrOfferNotFound, "update offer status")
	}

	if field == models.OfferFieldBuyer {
		offer.BuyerStatus = status
	} else {
		offer.Status = status
	}

	event := &models.OfferStatusEvent{
		OfferID:   offer.ID,
		ActorID:   actorID,
		Field:     field,
		OldStatus: old,
		NewStatus: status,
	}
	if err := tx.Create(event).Error; err != nil {
		return storageError(err, ErrOfferNotFound, "record offer event")
	}
	return nil
}
