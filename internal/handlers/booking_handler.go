package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/middleware"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/internal/services"
)

// QuoteRequest prices a booking without creating it
type QuoteRequest struct {
	TourID         string                `json:"tourId"`
	Guests         int                   `json:"guests"`
	Customizations models.Customizations `json:"customizations"`
}

// BookingHandler serves customer booking requests
type BookingHandler struct {
	bookings *services.BookingService
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// Quote handles POST /api/v1/bookings/quote
func (h *BookingHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	quote, err := h.bookings.Quote(c.Request.Context(), req.TourID, req.Guests, req.Customizations)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), userCtx.Owner(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// A local id means the booking is held until the remote service is back
	c.JSON(http.StatusCreated, gin.H{
		"booking": booking,
		"offline": booking.IsLocal(),
	})
}

// ListMyBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var filter models.BookingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	bookings, err := h.bookings.List(c.Request.Context(), userCtx.Owner(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetMyBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetMyBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	booking, err := h.bookings.Get(c.Request.Context(), userCtx.Owner(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
