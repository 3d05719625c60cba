// internal/services/helpers_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/car-marketplace-backend/internal/config"
	"github.com/javajoker/car-marketplace-backend/internal/database"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0x00, 0x00, 0x00, 0x0D}

var testAWSConfig = config.AWSConfig{
	ImageBaseURL:   "https://images.example.com/",
	MaxImageSizeMB: 1,
}

var defaultNegotiation = config.NegotiationConfig{
	RestrictCarOffersToOwner: true,
	BlockOffersOnSoldCars:    true,
}

// memoryStorage is an ObjectStorage that keeps objects in a map.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *memoryStorage) PutObject(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

var errUploadFailed = errors.New("upload failed")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newTestCar(t *testing.T, cars *CarService, owner uuid.UUID, carMake string, price float64) uuid.UUID {
	t.Helper()
	car, err := cars.CreateCar(context.Background(), owner, &CreateCarRequest{
		Make:  carMake,
		Model: "Model",
		Year:  2015,
		Price: price,
	})
	require.NoError(t, err)
	return car.ID
}

func negotiationWith(override func(*config.NegotiationConfig)) config.NegotiationConfig {
	cfg := defaultNegotiation
	override(&cfg)
	return cfg
}
