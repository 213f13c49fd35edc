package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/internal/services"
)

// TourHandler serves the tour catalog
type TourHandler struct {
	catalog *services.CatalogService
	logger  *logrus.Logger
}

// NewTourHandler creates a new tour handler
func NewTourHandler(catalog *services.CatalogService, logger *logrus.Logger) *TourHandler {
	return &TourHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListTours handles GET /api/v1/tours
func (h *TourHandler) ListTours(c *gin.Context) {
	var filter models.TourFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}
	if !filter.Sort.IsValid() {
		badRequest(c, "sort must be one of price-low, price-high or rating", "sort")
		return
	}

	tours, err := h.catalog.ListTours(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tours":  tours,
		"count":  len(tours),
		"origin": h.catalog.Origin(c.Request.Context()),
	})
}

// GetTour handles GET /api/v1/tours/:id
func (h *TourHandler) GetTour(c *gin.Context) {
	tour, err := h.catalog.GetTour(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}
