// internal/services/offer_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/car-marketplace-backend/internal/config"
	"github.com/javajoker/car-marketplace-backend/internal/models"
)

type OfferServiceTestSuite struct {
	suite.Suite
	db     *gorm.DB
	cars   *CarService
	offers *OfferService
	ctx    context.Context

	seller uuid.UUID
	buyer  uuid.UUID
	other  uuid.UUID
	carID  uuid.UUID
}

func (suite *OfferServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.cars = NewCarService(suite.db, newMemoryStorage(), testAWSConfig)
	suite.offers = NewOfferService(suite.db, suite.cars, defaultNegotiation)
	suite.ctx = context.Background()

	suite.seller, suite.buyer, suite.other = uuid.New(), uuid.New(), uuid.New()
	suite.carID = newTestCar(suite.T(), suite.cars, suite.seller, "Volvo", 4500)
}

func (suite *OfferServiceTestSuite) makeOffer(buyer uuid.UUID, amount float64) *models.CarSellOffer {
	offer, err := suite.offers.CreateOffer(suite.ctx, buyer, &CreateOfferRequest{CarID: suite.carID, Amount: amount})
	require.NoError(suite.T(), err)
	return offer
}

func (suite *OfferServiceTestSuite) reloadOffer(id uuid.UUID) models.CarSellOffer {
	var offer models.CarSellOffer
	require.NoError(suite.T(), suite.db.First(&offer, "id = ?", id).Error)
	return offer
}

func (suite *OfferServiceTestSuite) countEvents(offerID uuid.UUID) int64 {
	var count int64
	require.NoError(suite.T(), suite.db.Model(&models.OfferStatusEvent{}).Where("offer_id = ?", offerID).Count(&count).Error)
	return count
}

func (suite *OfferServiceTestSuite) TestCreateOffer() {
	offer, err := suite.offers.CreateOffer(suite.ctx, suite.buyer, &CreateOfferRequest{
		CarID:   suite.carID,
		Amount:  4000,
		Message: "Cash today",
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), suite.carID, offer.CarID)
	assert.Equal(suite.T(), suite.buyer, offer.BuyerID)
	assert.Equal(suite.T(), models.OfferStatusPending, offer.Status)
	assert.Equal(suite.T(), models.OfferStatusPending, offer.BuyerStatus)

	stored := suite.reloadOffer(offer.ID)
	assert.Equal(suite.T(), 4000.0, stored.Amount)
	assert.Equal(suite.T(), "Cash today", stored.Message)
}

func (suite *OfferServiceTestSuite) TestCreateOfferErrors() {
	_, err := suite.offers.CreateOffer(suite.ctx, suite.seller, &CreateOfferRequest{CarID: suite.carID})
	assert.ErrorIs(suite.T(), err, ErrSelfOffer)
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.offers.CreateOffer(suite.ctx, suite.buyer, &CreateOfferRequest{CarID: uuid.New()})
	assert.ErrorIs(suite.T(), err, ErrCarNotFound)

	_, err = suite.offers.CreateOffer(suite.ctx, suite.buyer, &CreateOfferRequest{})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.offers.CreateOffer(suite.ctx, suite.buyer, &CreateOfferRequest{CarID: suite.carID, Amount: -1})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	var count int64
	require.NoError(suite.T(), suite.db.Model(&models.CarSellOffer{}).Count(&count).Error)
	assert.Zero(suite.T(), count)
}

func (suite *OfferServiceTestSuite) TestSaleCompletesWhenBothAccept() {
	offer := suite.makeOffer(suite.buyer, 4200)

	updated, err := suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OfferStatusAccepted, updated.Status)
	assert.Equal(suite.T(), models.OfferStatusPending, updated.BuyerStatus)

	car, err := suite.cars.GetByID(suite.ctx, suite.carID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), car.Sold)

	result, err := suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Sold)
	assert.True(suite.T(), result.Car.Sold)
	assert.True(suite.T(), result.Offer.BothAccepted())

	car, err = suite.cars.GetByID(suite.ctx, suite.carID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), car.Sold)
	require.NotNil(suite.T(), car.SoldOfferID)
	assert.Equal(suite.T(), offer.ID, *car.SoldOfferID)
	assert.NotNil(suite.T(), car.SoldAt)

	// A third user can't touch the offer.
	_, err = suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.other, "rejected")
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	// The parties can't either, once the car is gone.
	_, err = suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "pending")
	assert.ErrorIs(suite.T(), err, ErrCarSold)
	_, err = suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "rejected")
	assert.ErrorIs(suite.T(), err, ErrCarSold)

	// New offers on the sold car are refused.
	_, err = suite.offers.CreateOffer(suite.ctx, suite.other, &CreateOfferRequest{CarID: suite.carID, Amount: 5000})
	assert.ErrorIs(suite.T(), err, ErrCarSold)
}

func (suite *OfferServiceTestSuite) TestBuyerAcceptingFirstDoesNotSell() {
	offer := suite.makeOffer(suite.buyer, 4200)

	result, err := suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Sold)

	_, err = suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	require.NoError(suite.T(), err)

	car, err := suite.cars.GetByID(suite.ctx, suite.carID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), car.Sold, "seller acceptance alone never completes a sale")

	result, err = suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Sold)
	assert.Equal(suite.T(), int64(2), suite.countEvents(offer.ID))
}

func (suite *OfferServiceTestSuite) TestSellerUpdateRequiresCarOwner() {
	offer := suite.makeOffer(suite.buyer, 4200)

	_, err := suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	assert.ErrorIs(suite.T(), err, ErrNotCarOwner)

	_, err = suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.other, "accepted")
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	assert.Equal(suite.T(), models.OfferStatusPending, suite.reloadOffer(offer.ID).Status)
	assert.Zero(suite.T(), suite.countEvents(offer.ID))
}

func (suite *OfferServiceTestSuite) TestLegacySellerCheck() {
	legacy := NewOfferService(suite.db, suite.cars, negotiationWith(func(n *config.NegotiationConfig) {
		n.LegacySellerCheck = true
	}))
	offer := suite.makeOffer(suite.buyer, 4200)

	_, err := legacy.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	assert.ErrorIs(suite.T(), err, ErrNotOfferBuyer)

	updated, err := legacy.SellerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OfferStatusAccepted, updated.Status)
}

func (suite *OfferServiceTestSuite) TestBuyerUpdateRequiresBuyer() {
	offer := suite.makeOffer(suite.buyer, 4200)
	second := suite.makeOffer(suite.other, 4300)

	_, err := suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.other, "accepted")
	assert.ErrorIs(suite.T(), err, ErrNotOfferBuyer)

	_, err = suite.offers.BuyerUpdateStatus(suite.ctx, second.ID, suite.buyer, "accepted")
	assert.ErrorIs(suite.T(), err, ErrNotOfferBuyer)

	_, err = suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	assert.ErrorIs(suite.T(), err, ErrNotOfferBuyer)
}

func (suite *OfferServiceTestSuite) TestInvalidStatusWritesNothing() {
	offer := suite.makeOffer(suite.buyer, 4200)

	for _, raw := range []string{"", "sold", "ACCEPTED!", "maybe"} {
		_, err := suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, raw)
		assert.ErrorIs(suite.T(), err, ErrValidation, raw)
		_, err = suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, raw)
		assert.ErrorIs(suite.T(), err, ErrValidation, raw)
	}

	stored := suite.reloadOffer(offer.ID)
	assert.Equal(suite.T(), models.OfferStatusPending, stored.Status)
	assert.Equal(suite.T(), models.OfferStatusPending, stored.BuyerStatus)
	assert.Zero(suite.T(), suite.countEvents(offer.ID))
}

func (suite *OfferServiceTestSuite) TestStatusIsCaseInsensitive() {
	offer := suite.makeOffer(suite.buyer, 4200)

	updated, err := suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, " Accepted ")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OfferStatusAccepted, updated.Status)
}

func (suite *OfferServiceTestSuite) TestUnknownOffer() {
	_, err := suite.offers.SellerUpdateStatus(suite.ctx, uuid.New(), suite.seller, "accepted")
	assert.ErrorIs(suite.T(), err, ErrOfferNotFound)

	_, err = suite.offers.BuyerUpdateStatus(suite.ctx, uuid.New(), suite.buyer, "accepted")
	assert.ErrorIs(suite.T(), err, ErrOfferNotFound)
}

func (suite *OfferServiceTestSuite) TestRejectedOfferIsClosed() {
	offer := suite.makeOffer(suite.buyer, 100)

	updated, err := suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "rejected")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), updated.Closed())

	_, err = suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	assert.ErrorIs(suite.T(), err, ErrOfferClosed)

	_, err = suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	assert.ErrorIs(suite.T(), err, ErrOfferClosed)
	assert.ErrorIs(suite.T(), err, ErrConflict)

	stored := suite.reloadOffer(offer.ID)
	assert.Equal(suite.T(), models.OfferStatusRejected, stored.Status)
	assert.Equal(suite.T(), models.OfferStatusPending, stored.BuyerStatus)

	// Other offers on the car stay open.
	other := suite.makeOffer(suite.other, 4400)
	_, err = suite.offers.SellerUpdateStatus(suite.ctx, other.ID, suite.seller, "accepted")
	assert.NoError(suite.T(), err)
}

func (suite *OfferServiceTestSuite) TestOneEventPerChange() {
	offer := suite.makeOffer(suite.buyer, 4200)

	_, err := suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	require.NoError(suite.T(), err)
	_, err = suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "accepted")
	require.NoError(suite.T(), err)
	_, err = suite.offers.SellerUpdateStatus(suite.ctx, offer.ID, suite.seller, "pending")
	require.NoError(suite.T(), err)

	events, err := suite.offers.ListOfferEvents(suite.ctx, suite.buyer, offer.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), events, 2)

	assert.Equal(suite.T(), models.OfferFieldSeller, events[0].Field)
	assert.Equal(suite.T(), models.OfferStatusPending, events[0].OldStatus)
	assert.Equal(suite.T(), models.OfferStatusAccepted, events[0].NewStatus)
	assert.Equal(suite.T(), suite.seller, events[0].ActorID)

	assert.Equal(suite.T(), models.OfferStatusAccepted, events[1].OldStatus)
	assert.Equal(suite.T(), models.OfferStatusPending, events[1].NewStatus)

	_, err = suite.offers.ListOfferEvents(suite.ctx, suite.seller, offer.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.offers.ListOfferEvents(suite.ctx, suite.other, offer.ID)
	assert.ErrorIs(suite.T(), err, ErrNotOfferParty)

	_, err = suite.offers.ListOfferEvents(suite.ctx, suite.buyer, uuid.New())
	assert.ErrorIs(suite.T(), err, ErrOfferNotFound)
}

func (suite *OfferServiceTestSuite) TestListOffers() {
	first := suite.makeOffer(suite.buyer, 4000)
	suite.makeOffer(suite.other, 4100)

	otherCar := newTestCar(suite.T(), suite.cars, suite.other, "Saab", 900)
	_, err := suite.offers.CreateOffer(suite.ctx, suite.buyer, &CreateOfferRequest{CarID: otherCar, Amount: 800})
	require.NoError(suite.T(), err)

	mine, err := suite.offers.ListOffersByBuyer(suite.ctx, suite.buyer)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), mine, 2)
	for _, offer := range mine {
		assert.Equal(suite.T(), suite.buyer, offer.BuyerID)
	}

	onCar, err := suite.offers.ListOffersOnCar(suite.ctx, suite.seller, suite.carID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), onCar, 2)

	_, err = suite.offers.ListOffersOnCar(suite.ctx, suite.buyer, suite.carID)
	assert.ErrorIs(suite.T(), err, ErrNotCarOwner)

	_, err = suite.offers.ListOffersOnCar(suite.ctx, suite.seller, uuid.New())
	assert.ErrorIs(suite.T(), err, ErrCarNotFound)

	open := NewOfferService(suite.db, suite.cars, negotiationWith(func(n *config.NegotiationConfig) {
		n.RestrictCarOffersToOwner = false
	}))
	onCar, err = open.ListOffersOnCar(suite.ctx, suite.buyer, suite.carID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), onCar, 2)
	assert.Contains(suite.T(), []uuid.UUID{onCar[0].ID, onCar[1].ID}, first.ID)
}

func (suite *OfferServiceTestSuite) TestOffersOnSoldCarWhenAllowed() {
	lenient := NewOfferService(suite.db, suite.cars, negotiationWith(func(n *config.NegotiationConfig) {
		n.BlockOffersOnSoldCars = false
	}))
	require.NoError(suite.T(), suite.db.Model(&models.Car{}).Where("id = ?", suite.carID).Update("sold", true).Error)

	offer, err := lenient.CreateOffer(suite.ctx, suite.buyer, &CreateOfferRequest{CarID: suite.carID, Amount: 1})
	require.NoError(suite.T(), err)

	// It can never complete.
	_, err = lenient.BuyerUpdateStatus(suite.ctx, offer.ID, suite.buyer, "accepted")
	assert.ErrorIs(suite.T(), err, ErrCarSold)
}

func (suite *OfferServiceTestSuite) TestConcurrentAcceptanceSellsOnce() {
	const buyers = 8

	offers := make([]*models.CarSellOffer, buyers)
	for i := range offers {
		offers[i] = suite.makeOffer(uuid.New(), float64(4000+i))
		_, err := suite.offers.SellerUpdateStatus(suite.ctx, offers[i].ID, suite.seller, "accepted")
		require.NoError(suite.T(), err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losses  int
	)
	for _, offer := range offers {
		wg.Add(1)
		go func(offer *models.CarSellOffer) {
			defer wg.Done()
			result, err := suite.offers.BuyerUpdateStatus(suite.ctx, offer.ID, offer.BuyerID, "accepted")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && result.Sold:
				winners = append(winners, offer.ID)
			case errors.Is(err, ErrCarSold):
				losses++
			default:
				suite.T().Errorf("unexpected outcome: result=%v err=%v", result, err)
			}
		}(offer)
	}
	wg.Wait()

	require.Len(suite.T(), winners, 1)
	assert.Equal(suite.T(), buyers-1, losses)

	car, err := suite.cars.GetByID(suite.ctx, suite.carID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), car.Sold)
	require.NotNil(suite.T(), car.SoldOfferID)
	assert.Equal(suite.T(), winners[0], *car.SoldOfferID)

	// Losing buyers keep their own status untouched.
	for _, offer := range offers {
		if offer.ID == winners[0] {
			continue
		}
		assert.Equal(suite.T(), models.OfferStatusPending, suite.reloadOffer(offer.ID).BuyerStatus)
	}
}

func TestOfferServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OfferServiceTestSuite))
}
