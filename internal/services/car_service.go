// internal/services/car_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/car-marketplace-backend/internal/config"
	"github.com/javajoker/car-marketplace-backend/internal/models"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

type CarService struct {
	db           *gorm.DB
	storage      ObjectStorage
	imageBaseURL string
	maxImageSize int
}

type CreateCarRequest struct {
	Make        string          `json:"make" validate:"required,max=100"`
	Model       string          `json:"model" validate:"required,max=100"`
	Year        int             `json:"year" validate:"required,gte=1886,lte=2100"`
	Mileage     int             `json:"mileage" validate:"gte=0"`
	FuelType    models.FuelType `json:"fuel_type,omitempty" validate:"omitempty,oneof=petrol diesel hybrid electric lpg"`
	Color       string          `json:"color,omitempty" validate:"max=50"`
	Price       float64         `json:"price" validate:"required,gt=0"`
	Description string          `json:"description,omitempty" validate:"max=5000"`
	Features    []string        `json:"features,omitempty" validate:"max=30,dive,required,max=100"`
	// Object key the image is stored under; the public URL is derived from it.
	ImageKey string `json:"image_key,omitempty"`
	// Raw image bytes, base64 in JSON.
	ImageData []byte `json:"image_data,omitempty"`
}

type CarSearchParams struct {
	utils.PaginationParams
	Make     string   `json:"make,omitempty"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
	YearMin  *int     `json:"year_min,omitempty"`
	Sold     *bool    `json:"sold,omitempty"`
}

var carSortFields = []string{"created_at", "updated_at", "price", "year", "mileage", "make"}

func NewCarService(db *gorm.DB, storage ObjectStorage, cfg config.AWSConfig) *CarService {
	maxImageSize := cfg.MaxImageSizeMB * 1024 * 1024
	if maxImageSize <= 0 {
		maxImageSize = 10 * 1024 * 1024
	}
	return &CarService{
		db:           db,
		storage:      storage,
		imageBaseURL: cfg.ImageBaseURL,
		maxImageSize: maxImageSize,
	}
}

func (s *CarService) CreateCar(ctx context.Context, ownerID uuid.UUID, req *CreateCarRequest) (*models.Car, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	if len(req.ImageData) > 0 && req.ImageKey == "" {
		return nil, ErrInvalidImageKey
	}

	var imageURL string
	if req.ImageKey != "" {
		if err := ValidateImageKey(req.ImageKey); err != nil {
			return nil, err
		}
		imageURL = s.ImageURL(req.ImageKey)
	}

	uploaded := false
	if len(req.ImageData) > 0 {
		if len(req.ImageData) > s.maxImageSize {
			return nil, fmt.Errorf("%w: image is %d bytes, limit is %d", ErrValidation, len(req.ImageData), s.maxImageSize)
		}
		contentType, err := DetectImageType(req.ImageData)
		if err != nil {
			return nil, err
		}
		if err := s.storage.PutObject(ctx, req.ImageKey, req.ImageData, contentType); err != nil {
			return nil, fmt.Errorf("%w: upload image: %v", ErrStorage, err)
		}
		uploaded = true
	}

	car := &models.Car{
		OwnerID:     ownerID,
		Make:        strings.TrimSpace(req.Make),
		Model:       strings.TrimSpace(req.Model),
		Year:        req.Year,
		Mileage:     req.Mileage,
		FuelType:    req.FuelType,
		Color:       req.Color,
		Price:       req.Price,
		Description: req.Description,
		Features:    req.Features,
		ImageURL:    imageURL,
		Sold:        false,
	}

	if err := s.db.WithContext(ctx).Create(car).Error; err != nil {
		if uploaded {
			if delErr := s.storage.DeleteObject(ctx, req.ImageKey); delErr != nil {
				logrus.WithError(delErr).WithField("key", req.ImageKey).Warn("Failed to remove orphaned car image")
			}
		}
		return nil, storageError(err, ErrUserNotFound, "create car")
	}

	logrus.WithFields(logrus.Fields{
		"car_id":   car.ID,
		"owner_id": ownerID,
	}).Info("Car listed")

	return car, nil
}

// ImageURL joins the configured base URL and an object key.
func (s *CarService) ImageURL(key string) string {
	return strings.TrimRight(s.imageBaseURL, "/") + "/" + key
}

// ListOthers returns the marketplace view for requester: every car listed by
// someone else.
func (s *CarService) ListOthers(ctx context.Context, requesterID uuid.UUID, params CarSearchParams) ([]models.Car, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Car{}).Where("owner_id <> ?", requesterID)
	return s.search(query, params)
}

func (s *CarService) ListMine(ctx context.Context, requesterID uuid.UUID, params CarSearchParams) ([]models.Car, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Car{}).Where("owner_id = ?", requesterID)
	return s.search(query, params)
}

func (s *CarService) search(query *gorm.DB, params CarSearchParams) ([]models.Car, int64, error) {
	if params.Make != "" {
		query = query.Where("LOWER(make) = ?", strings.ToLower(params.Make))
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(make) LIKE ? OR LOWER(model) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm, searchTerm)
	}

	if params.PriceMin != nil {
		query = query.Where("price >= ?", *params.PriceMin)
	}

	if params.PriceMax != nil {
		query = query.Where("price <= ?", *params.PriceMax)
	}

	if params.YearMin != nil {
		query = query.Where("year >= ?", *params.YearMin)
	}

	if params.Sold != nil {
		query = query.Where("sold = ?", *params.Sold)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError(err, ErrCarNotFound, "count cars")
	}

	query = utils.ApplySort(query, params.PaginationParams, carSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var cars []models.Car
	if err := query.Find(&cars).Error; err != nil {
		return nil, 0, storageError(err, ErrCarNotFound, "list cars")
	}

	return cars, total, nil
}

// GetByID is the public detail view; there is no ownership gate.
func (s *CarService) GetByID(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	if err := s.db.WithContext(ctx).First(&car, "id = ?", id).Error; err != nil {
		return nil, storageError(err, ErrCarNotFound, "get car")
	}
	return &car, nil
}

// lockCar reads a car inside tx and holds its row lock until commit.
func (s *CarService) lockCar(tx *gorm.DB, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	if err := lockForUpdate(tx).First(&car, "id = ?", id).Error; err != nil {
		return nil, storageError(err, ErrCarNotFound, "lock car")
	}
	return &car, nil
}

// markSold flips the sold flag inside the caller's transaction. The update
// is conditional on sold = false, so a car can only be sold once no matter
// how many transactions race here.
func (s *CarService) markSold(tx *gorm.DB, car *models.Car, offerID uuid.UUID) error {
	now := time.Now()
	result := tx.Model(&models.Car{}).
		Where("id = ? AND sold = ?", car.ID, false).
		Updates(map[string]interface{}{
			"sold":          true,
			"sold_at":       now,
			"sold_offer_id": offerID,
		})
	if result.Error != nil {
		return storageError(result.Error, ErrCarNotFound, "mark car sold")
	}
	if result.RowsAffected == 0 {
		return ErrCarSold
	}

	car.Sold = true
	car.SoldAt = &now
	car.SoldOfferID = &offerID
	return nil
}
