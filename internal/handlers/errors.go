package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func badRequest(c *gin.Context, message string, fields ...string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Fields:  fields,
	})
}

// respondError maps a service error to its HTTP status
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validationErr *models.ValidationError
		capacityErr   *models.CapacityExceededError
		transitionErr *models.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
			Fields:  validationErr.Fields,
		})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "capacity_exceeded",
			Message: capacityErr.Error(),
			Fields:  []string{"guests"},
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_transition",
			Message: transitionErr.Error(),
		})
	case errors.Is(err, services.ErrReconcileRunning):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "reconcile_running",
			Message: err.Error(),
		})
	default:
		logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
	}
}
