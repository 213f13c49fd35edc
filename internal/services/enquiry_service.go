package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/validator"
)

// EnquiryStore persists enquiries of one owner namespace
type EnquiryStore interface {
	Create(ctx context.Context, e *models.Enquiry) (*models.Enquiry, error)
	List(ctx context.Context, filter models.EnquiryFilter) ([]models.Enquiry, error)
	UpdateStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error)
}

// EnquiryStoreFactory returns the store of an owner namespace
type EnquiryStoreFactory func(owner string) EnquiryStore

// EnquiryService handles contact requests
type EnquiryService struct {
	stores    EnquiryStoreFactory
	validator *validator.ContactValidator
	logger    *logrus.Logger
}

// NewEnquiryService creates a new EnquiryService
func NewEnquiryService(stores EnquiryStoreFactory, logger *logrus.Logger) *EnquiryService {
	return &EnquiryService{
		stores:    stores,
		validator: validator.NewContactValidator(),
		logger:    logger,
	}
}

// Create validates and stores an enquiry. The sender's email is the owner namespace.
func (s *EnquiryService) Create(ctx context.Context, req *models.CreateEnquiryRequest) (*models.Enquiry, error) {
	fields := append(req.MissingFields(), s.validator.MalformedFields(req.Email, req.Phone)...)
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	email := strings.TrimSpace(req.Email)
	created, err := s.stores(strings.ToLower(email)).Create(ctx, &models.Enquiry{
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		Phone:       strings.TrimSpace(req.Phone),
		Destination: strings.TrimSpace(req.Destination),
		Message:     strings.TrimSpace(req.Message),
		Status:      models.EnquiryStatusNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create enquiry: %w", err)
	}

	s.logger.WithField("enquiry_id", created.ID).Info("Enquiry received")
	return created, nil
}

// List returns enquiries newest first
func (s *EnquiryService) List(ctx context.Context, owner string, filter models.EnquiryFilter) ([]models.Enquiry, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, &models.ValidationError{Fields: []string{"status"}, Message: fmt.Sprintf("unknown enquiry status: %s", filter.Status)}
	}
	return s.stores(owner).List(ctx, filter)
}

// UpdateStatus sets an enquiry status. There is no state machine for enquiries.
func (s *EnquiryService) UpdateStatus(ctx context.Context, owner, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	if !status.IsValid() {
		return nil, &models.ValidationError{Fields: []string{"status"}, Message: fmt.Sprintf("unknown enquiry status: %s", status)}
	}

	updated, err := s.stores(owner).UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	updated.Status = status

	s.logger.WithFields(logrus.Fields{
		"enquiry_id": updated.ID,
		"status":     status,
	}).Info("Enquiry status changed")
	return updated, nil
}
