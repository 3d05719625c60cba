// internal/handlers/car.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/car-marketplace-backend/internal/i18n"
	"github.com/javajoker/car-marketplace-backend/internal/models"
	"github.com/javajoker/car-marketplace-backend/internal/services"
	"github.com/javajoker/car-marketplace-backend/internal/utils"
)

type CarHandler struct {
	carService *services.CarService
}

func NewCarHandler(carService *services.CarService) *CarHandler {
	return &CarHandler{
		carService: carService,
	}
}

// POST /cars
func (h *CarHandler) CreateCar(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	ownerID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateCarRequest
	if !bindJSON(c, &req) {
		return
	}

	car, err := h.carService.CreateCar(c.Request.Context(), ownerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCarCreated),
		"car":     car,
	})
}

// GET /cars
// Cars listed by everyone except the caller.
func (h *CarHandler) ListOthersCars(c *gin.Context) {
	requesterID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := parseCarSearchParams(c)
	cars, total, err := h.carService.ListOthers(c.Request.Context(), requesterID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(models.ToListings(cars), total, params.PaginationParams))
}

// GET /cars/mine
func (h *CarHandler) ListMyCars(c *gin.Context) {
	requesterID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := parseCarSearchParams(c)
	cars, total, err := h.carService.ListMine(c.Request.Context(), requesterID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(cars, total, params.PaginationParams))
}

// GET /cars/:id
func (h *CarHandler) GetCar(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyCarNotFound)
		return
	}

	car, err := h.carService.GetByID(c.Request.Context(), carID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, car.ToListing())
}

func parseCarSearchParams(c *gin.Context) services.CarSearchParams {
	params := services.CarSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Make:             c.Query("make"),
	}

	if priceMinStr := c.Query("price_min"); priceMinStr != "" {
		if priceMin, err := strconv.ParseFloat(priceMinStr, 64); err == nil {
			params.PriceMin = &priceMin
		}
	}

	if priceMaxStr := c.Query("price_max"); priceMaxStr != "" {
		if priceMax, err := strconv.ParseFloat(priceMaxStr, 64); err == nil {
			params.PriceMax = &priceMax
		}
	}

	if yearMinStr := c.Query("year_min"); yearMinStr != "" {
		if yearMin, err := strconv.Atoi(yearMinStr); err == nil {
			params.YearMin = &yearMin
		}
	}

	if soldStr := c.Query("sold"); soldStr != "" {
		if sold, err := strconv.ParseBool(soldStr); err == nil {
			params.Sold = &sold
		}
	}

	return params
}
