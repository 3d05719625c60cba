// internal/handlers/offer.go
package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/car-marketplace-backend/internal/i18n"
	"github.com/javajoker/car-marketplace-backend/internal/services"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

type OfferHandler struct {
	offerService *services.OfferService
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"omitempty,offer_status"`
}

func NewOfferHandler(offerService *services.OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

// POST /offers
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	buyerID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateOfferRequest
	if !bindJSON(c, &req) {
		return
	}

	offer, err := h.offerService.CreateOffer(c.Request.Context(), buyerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOfferCreated),
		"offer":   offer,
	})
}

// GET /offers
// Offers the caller has made as a buyer.
func (h *OfferHandler) ListMyOffers(c *gin.Context) {
	buyerID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	offers, err := h.offerService.ListOffersByBuyer(c.Request.Context(), buyerID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, offers)
}

// GET /cars/:id/offers
func (h *OfferHandler) ListCarOffers(c *gin.Context) {
	requesterID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyCarNotFound)
		return
	}

	offers, err := h.offerService.ListOffersOnCar(c.Request.Context(), requesterID, carID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, offers)
}

// PUT /offers/:id/status
func (h *OfferHandler) SellerUpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actorID, offerID, status, ok := h.statusUpdateInput(c)
	if !ok {
		return
	}

	offer, err := h.offerService.SellerUpdateStatus(c.Request.Context(), offerID, actorID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOfferUpdated),
		"offer":   offer,
	})
}

// PUT /offers/:id/buyer-status
func (h *OfferHandler) BuyerUpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actorID, offerID, status, ok := h.statusUpdateInput(c)
	if !ok {
		return
	}

	result, err := h.offerService.BuyerUpdateStatus(c.Request.Context(), offerID, actorID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Sold {
		utils.SuccessResponse(c, gin.H{
			"message": i18n.T(lang, i18n.KeyCarSold),
			"offer":   result.Offer,
			"car":     result.Car,
		})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOfferUpdated),
		"offer":   result.Offer,
	})
}

// GET /offers/:id/events
func (h *OfferHandler) ListOfferEvents(c *gin.Context) {
	requesterID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyOfferNotFound)
		return
	}

	events, err := h.offerService.ListOfferEvents(c.Request.Context(), requesterID, offerID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, events)
}

// statusUpdateInput reads the caller, the offer id and the requested status.
// The status comes from the JSON body, or from ?status= when the body is
// empty.
func (h *OfferHandler) statusUpdateInput(c *gin.Context) (uuid.UUID, uuid.UUID, string, bool) {
	lang := utils.GetLangFromContext(c)

	actorID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, uuid.Nil, "", false
	}

	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyOfferNotFound)
		return uuid.Nil, uuid.Nil, "", false
	}

	var req UpdateStatusRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return uuid.Nil, uuid.Nil, "", false
		}
	}
	if req.Status == "" {
		req.Status = c.Query("status")
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return uuid.Nil, uuid.Nil, "", false
	}

	return actorID, offerID, req.Status, true
}
