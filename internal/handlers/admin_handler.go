package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/middleware"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/internal/services"
)

// AdminHandler serves operator requests. The owner query parameter selects
// one customer namespace; without it every namespace is visible.
type AdminHandler struct {
	bookings  *services.BookingService
	enquiries *services.EnquiryService
	stats     *services.StatsService
	cron      *services.CronService
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	bookings *services.BookingService,
	enquiries *services.EnquiryService,
	stats *services.StatsService,
	cron *services.CronService,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		bookings:  bookings,
		enquiries: enquiries,
		stats:     stats,
		cron:      cron,
		logger:    logger,
	}
}

func ownerParam(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Query("owner")))
}

func bindStatus(c *gin.Context) (string, bool) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		badRequest(c, "status is required", "status")
		return "", false
	}
	return strings.TrimSpace(req.Status), true
}

// ListBookings handles GET /api/v1/admin/bookings
func (h *AdminHandler) ListBookings(c *gin.Context) {
	var filter models.BookingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	bookings, err := h.bookings.List(c.Request.Context(), ownerParam(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// UpdateBookingStatus handles PATCH /api/v1/admin/bookings/:id/status
func (h *AdminHandler) UpdateBookingStatus(c *gin.Context) {
	status, ok := bindStatus(c)
	if !ok {
		return
	}

	result, err := h.bookings.Transition(c.Request.Context(), ownerParam(c), c.Param("id"), models.BookingStatus(status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"operator":   middleware.MustGetUserContext(c).Email,
		"booking_id": result.Booking.ID,
		"status":     result.Booking.Status,
	}).Info("Operator changed booking status")

	c.JSON(http.StatusOK, result)
}

// ListEnquiries handles GET /api/v1/admin/enquiries
func (h *AdminHandler) ListEnquiries(c *gin.Context) {
	var filter models.EnquiryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	enquiries, err := h.enquiries.List(c.Request.Context(), ownerParam(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enquiries": enquiries,
		"count":     len(enquiries),
	})
}

// UpdateEnquiryStatus handles PATCH /api/v1/admin/enquiries/:id/status
func (h *AdminHandler) UpdateEnquiryStatus(c *gin.Context) {
	status, ok := bindStatus(c)
	if !ok {
		return
	}

	enquiry, err := h.enquiries.UpdateStatus(c.Request.Context(), ownerParam(c), c.Param("id"), models.EnquiryStatus(status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, enquiry)
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context(), ownerParam(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetTourStats handles GET /api/v1/admin/stats/tours
func (h *AdminHandler) GetTourStats(c *gin.Context) {
	stats, err := h.stats.Tours(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Reconcile handles POST /api/v1/admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.cron.RunReconcileNow(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReconcileStatus handles GET /api/v1/admin/reconcile
func (h *AdminHandler) ReconcileStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}
