// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/car-marketplace-backend/internal/i18n"
	"github.com/javajoker/car-marketplace-backend/internal/services"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", i18n.T(lang, i18n.KeyOfferInvalidStatus), nil)
	case errors.Is(err, services.ErrValidation):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())

	case errors.Is(err, services.ErrBadCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))

	case errors.Is(err, services.ErrSelfOffer):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyOfferSelfDealing))
	case errors.Is(err, services.ErrNotOfferBuyer):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyOfferNotYours))
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")

	case errors.Is(err, services.ErrCarNotFound):
		utils.NotFoundResponse(c, i18n.KeyCarNotFound)
	case errors.Is(err, services.ErrOfferNotFound):
		utils.NotFoundResponse(c, i18n.KeyOfferNotFound)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, i18n.KeyUserNotFound)

	case errors.Is(err, services.ErrCarSold):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyCarNotForSale))
	case errors.Is(err, services.ErrOfferClosed):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyOfferClosed))
	case errors.Is(err, services.ErrUserExists):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAuthUserExists))
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, "")

	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// bindJSON binds and validates a request body, writing the 400 response
// itself when either step fails.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", i18n.T(lang, i18n.KeyRequestTooLarge), nil)
			return false
		}
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}

	return true
}
