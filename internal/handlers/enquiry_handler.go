package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/internal/services"
)

// EnquiryHandler accepts contact requests
type EnquiryHandler struct {
	enquiries *services.EnquiryService
	logger    *logrus.Logger
}

// NewEnquiryHandler creates a new enquiry handler
func NewEnquiryHandler(enquiries *services.EnquiryService, logger *logrus.Logger) *EnquiryHandler {
	return &EnquiryHandler{
		enquiries: enquiries,
		logger:    logger,
	}
}

// CreateEnquiry handles POST /api/v1/enquiries
func (h *EnquiryHandler) CreateEnquiry(c *gin.Context) {
	var req models.CreateEnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	enquiry, err := h.enquiries.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, enquiry)
}
