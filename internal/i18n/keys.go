// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess         = "success"
	KeyError           = "error"
	KeyAccessDenied    = "common.access_denied"
	KeyConflict        = "common.conflict"
	KeyRequestTooLarge = "common.request_too_large"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound = "user.not_found"

	// Cars
	KeyCarCreated    = "car.created"
	KeyCarNotFound   = "car.not_found"
	KeyCarSold       = "car.sold"
	KeyCarNotForSale = "car.not_for_sale"

	// Offers
	KeyOfferCreated       = "offer.created"
	KeyOfferUpdated       = "offer.updated"
	KeyOfferNotFound      = "offer.not_found"
	KeyOfferSelfDealing   = "offer.self_dealing"
	KeyOfferNotYours      = "offer.not_yours"
	KeyOfferClosed        = "offer.closed"
	KeyOfferInvalidStatus = "offer.invalid_status"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"

	// Rate limiting
	KeyRateLimited = "rate.limited"
)
