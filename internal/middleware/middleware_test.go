// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/car-marketplace-backend/internal/database"
	"github.com/javajoker/car-marketplace-backend/internal/models"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthRequired(t *testing.T) {
	jwt := utils.NewJWTManager("test-secret")
	userID := uuid.New()
	token, err := jwt.GenerateJWT(userID, "astarion", 1)
	require.NoError(t, err)
	refresh, err := jwt.GenerateRefreshToken(userID, 1)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthRequired(jwt), func(c *gin.Context) {
		id, ok := utils.GetUserUUIDFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestAuthRequiredRejectsForeignSecret(t *testing.T) {
	token, err := utils.NewJWTManager("other-secret").GenerateJWT(uuid.New(), "mallory", 1)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthRequired(utils.NewJWTManager("test-secret")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx, rate.Every(time.Hour), 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx, rate.Every(time.Second), 1)
	limiter.getVisitor("10.0.0.1")
	limiter.evict(time.Now().Add(visitorTTL + time.Second))

	limiter.mtx.Lock()
	defer limiter.mtx.Unlock()
	assert.Empty(t, limiter.visitors)
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, "en", resolveLanguage("", "en"))
	assert.Equal(t, "en", resolveLanguage("en-US,en;q=0.9", "en"))
	assert.Equal(t, "en", resolveLanguage("fr-FR", "en"))
}

func TestAuditLogMiddleware(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	defer database.Close(db)

	carID := uuid.New()
	userID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	})
	r.Use(AuditLogMiddleware(db))
	r.POST("/v1/cars/:id/offers", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/v1/cars", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := `{"amount": 100, "password": "secret", "image_data": "aGVsbG8="}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cars/"+carID.String()+"/offers", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/cars", nil))

	var entry models.AuditLog
	require.Eventually(t, func() bool {
		return db.First(&entry).Error == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "POST /v1/cars/:id/offers", entry.Action)
	assert.Equal(t, "cars", entry.ResourceType)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, carID, *entry.ResourceID)
	assert.EqualValues(t, 100, entry.NewValues["amount"])
	assert.NotContains(t, entry.NewValues, "password")
	assert.NotContains(t, entry.NewValues, "image_data")

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBodyLimit(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	defer database.Close(db)

	reached := 0
	r := gin.New()
	r.Use(BodyLimit(16))
	r.Use(AuditLogMiddleware(db))
	r.POST("/v1/cars", func(c *gin.Context) {
		reached++
		c.Status(http.StatusCreated)
	})

	big := `{"image_data": "` + strings.Repeat("A", 100) + `"}`

	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{"small body", `{"a": 1}`, 0, http.StatusCreated},
		{"declared oversize", big, 0, http.StatusRequestEntityTooLarge},
		{"chunked oversize", big, -1, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/cars", strings.NewReader(tt.body))
			if tt.contentLength != 0 {
				req.ContentLength = tt.contentLength
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	assert.Equal(t, 1, reached)
}
