// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage error")
)

// Domain errors surfaced by the listing store and the negotiation engine.
var (
	ErrCarNotFound     = fmt.Errorf("%w: car not found", ErrNotFound)
	ErrOfferNotFound   = fmt.Errorf("%w: offer not found", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrSelfOffer       = fmt.Errorf("%w: you can't make an offer on your own car", ErrForbidden)
	ErrNotOfferBuyer   = fmt.Errorf("%w: you can't update this offer", ErrForbidden)
	ErrNotCarOwner     = fmt.Errorf("%w: only the car owner can do this", ErrForbidden)
	ErrNotOfferParty   = fmt.Errorf("%w: you are not a party to this offer", ErrForbidden)
	ErrCarSold         = fmt.Errorf("%w: car has already been sold", ErrConflict)
	ErrOfferClosed     = fmt.Errorf("%w: offer has been rejected and can no longer change", ErrConflict)
	ErrUserExists      = fmt.Errorf("%w: user with this email or username already exists", ErrConflict)
	ErrBadCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrInvalidStatus   = fmt.Errorf("%w: status must be one of pending, accepted, rejected", ErrValidation)
	ErrInvalidImageKey = fmt.Errorf("%w: image_key is required when image_data is sent", ErrValidation)
)

// Postgres SQLSTATE codes the services care about.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// storageError classifies an error returned by gorm. Lookup misses and
// dangling foreign keys become notFound, everything else is wrapped as
// ErrStorage and passed through untouched.
func storageError(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return notFound
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}

	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
