// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/car-marketplace-backend/internal/config"
	"github.com/javajoker/car-marketplace-backend/internal/handlers"
	"github.com/javajoker/car-marketplace-backend/internal/middleware"
	"github.com/javajoker/car-marketplace-backend/internal/services"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

// Initialize wires services, handlers and middleware. ctx bounds the
// background goroutines the middleware starts.
func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config, storage services.ObjectStorage) *gin.Engine {
	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey)

	// Initialize services
	authService := services.NewAuthService(db, jwtManager, cfg.JWT)
	carService := services.NewCarService(db, storage, cfg.AWS)
	offerService := services.NewOfferService(db, carService, cfg.Negotiation)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	carHandler := handlers.NewCarHandler(carService)
	offerHandler := handlers.NewOfferHandler(offerService)

	limiters := middleware.NewRateLimiters(ctx, cfg.RateLimit)
	authRequired := middleware.AuthRequired(jwtManager)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(limiters.General.Middleware())
	r.Use(middleware.BodyLimit(cfg.AWS.MaxRequestBytes()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	})

	if cfg.Environment == "development" && cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", cfg.AWS.LocalUploadDir)
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(limiters.Auth.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", authRequired, authHandler.GetProfile)
		}

		// Car routes
		cars := v1.Group("/cars")
		cars.Use(middleware.AuditLogMiddleware(db))
		{
			cars.GET("/:id", carHandler.GetCar)

			protected := cars.Group("")
			protected.Use(authRequired)
			{
				protected.POST("", limiters.Upload.Middleware(), carHandler.CreateCar)
				protected.GET("", carHandler.ListOthersCars)
				protected.GET("/mine", carHandler.ListMyCars)
				protected.GET("/:id/offers", offerHandler.ListCarOffers)
			}
		}

		// Offer routes
		offers := v1.Group("/offers")
		offers.Use(authRequired, middleware.AuditLogMiddleware(db))
		{
			offers.POST("", offerHandler.CreateOffer)
			offers.GET("", offerHandler.ListMyOffers)
			offers.PUT("/:id/status", offerHandler.SellerUpdateStatus)
			offers.PUT("/:id/buyer-status", offerHandler.BuyerUpdateStatus)
			offers.GET("/:id/events", offerHandler.ListOfferEvents)
		}
	}

	return r
}
