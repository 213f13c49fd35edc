package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/validator"
)

// tourDateLayout is the date format of the booking form
const tourDateLayout = "2006-01-02"

// BookingStore persists bookings of one owner namespace
type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	Get(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error)
}

// BookingStoreFactory returns the store of an owner namespace
type BookingStoreFactory func(owner string) BookingStore

// TourLookup resolves tours for pricing and capacity checks
type TourLookup interface {
	GetTour(ctx context.Context, id string) (*models.Tour, error)
}

// EventPublisher receives booking events after a status change commits
type EventPublisher interface {
	Publish(event models.BookingEvent) Outcome
}

// TransitionResult is a committed status change and what became of its notification
type TransitionResult struct {
	Booking      *models.Booking `json:"booking"`
	Notification Outcome         `json:"notification"`
	Warning      string          `json:"warning,omitempty"`
}

// BookingService creates bookings and drives their lifecycle
type BookingService struct {
	stores    BookingStoreFactory
	tours     TourLookup
	events    EventPublisher
	validator *validator.ContactValidator
	logger    *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(stores BookingStoreFactory, tours TourLookup, events EventPublisher, logger *logrus.Logger) *BookingService {
	return &BookingService{
		stores:    stores,
		tours:     tours,
		events:    events,
		validator: validator.NewContactValidator(),
		logger:    logger,
	}
}

// Create validates a booking request, prices it and persists it as pending.
// Nothing is persisted when validation or the capacity check fails.
func (s *BookingService) Create(ctx context.Context, owner string, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	tour, err := s.tourFor(ctx, req.TourID, req.Guests)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		TourID:         tour.ID,
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Owner:          owner,
		TourDate:       strings.TrimSpace(req.Date),
		Guests:         req.Guests,
		Customizations: req.Customizations,
		TotalPrice:     ComputeTotal(*tour, req.Guests, req.Customizations),
		Status:         models.BookingStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		CorrelationID:  req.CorrelationID,
	}

	created, err := s.stores(owner).Create(ctx, booking)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"owner":       owner,
		"booking_id":  created.ID,
		"tour_id":     created.TourID,
		"guests":      created.Guests,
		"total_price": created.TotalPrice,
	}).Info("Booking created")

	return created, nil
}

// Quote prices a booking request without persisting anything
func (s *BookingService) Quote(ctx context.Context, tourID string, guests int, c models.Customizations) (*PriceQuote, error) {
	if strings.TrimSpace(tourID) == "" {
		return nil, &models.ValidationError{Fields: []string{"tourId"}}
	}
	tour, err := s.tourFor(ctx, tourID, guests)
	if err != nil {
		return nil, err
	}
	quote := PriceBreakdown(*tour, guests, c)
	return &quote, nil
}

// List returns the owner's bookings
func (s *BookingService) List(ctx context.Context, owner string, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, &models.ValidationError{Fields: []string{"status"}, Message: fmt.Sprintf("unknown booking status: %s", filter.Status)}
	}
	return s.stores(owner).List(ctx, filter)
}

// Get returns one booking of the owner
func (s *BookingService) Get(ctx context.Context, owner, id string) (*models.Booking, error) {
	return s.stores(owner).Get(ctx, id)
}

// Confirm moves a pending booking to confirmed
func (s *BookingService) Confirm(ctx context.Context, owner, id string) (*TransitionResult, error) {
	return s.Transition(ctx, owner, id, models.BookingStatusConfirmed)
}

// Cancel moves a pending booking to cancelled
func (s *BookingService) Cancel(ctx context.Context, owner, id string) (*TransitionResult, error) {
	return s.Transition(ctx, owner, id, models.BookingStatusCancelled)
}

// Transition applies an operator status change. An illegal change or an
// unknown booking mutates nothing and publishes nothing. After the change is
// stored an event is published; a notification problem only fills Warning.
//
// Concurrent operators are not coordinated: the last write wins.
func (s *BookingService) Transition(ctx context.Context, owner, id string, requested models.BookingStatus) (*TransitionResult, error) {
	if !requested.IsValid() {
		return nil, &models.ValidationError{Fields: []string{"status"}, Message: fmt.Sprintf("unknown booking status: %s", requested)}
	}

	store := s.stores(owner)
	current, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := models.Transition(current.Status, requested)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_id": current.ID,
			"from":       current.Status,
			"to":         requested,
		}).Warn("Rejected booking status change")
		return nil, err
	}

	updated, err := store.UpdateStatus(ctx, current.ID, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	fillMissing(updated, current)
	updated.Status = next

	s.logger.WithFields(logrus.Fields{
		"owner":      owner,
		"booking_id": updated.ID,
		"from":       current.Status,
		"to":         next,
	}).Info("Booking status changed")

	result := &TransitionResult{Booking: updated}
	eventType, ok := models.EventForStatus(next)
	if !ok {
		return result, nil
	}

	result.Notification = s.events.Publish(models.BookingEvent{
		Type:       eventType,
		Booking:    *updated,
		OccurredAt: time.Now().UTC(),
	})
	if !result.Notification.Sent && !result.Notification.Queued {
		result.Warning = fmt.Sprintf("status updated but the customer was not notified: %s", result.Notification.Reason)
	}
	return result, nil
}

func (s *BookingService) validate(req *models.CreateBookingRequest) error {
	fields := req.MissingFields()
	if strings.TrimSpace(req.TourID) == "" {
		fields = append([]string{"tourId"}, fields...)
	}
	fields = append(fields, s.validator.MalformedFields(req.Email, req.Phone)...)

	if date := strings.TrimSpace(req.Date); date != "" {
		if _, err := time.Parse(tourDateLayout, date); err != nil {
			fields = append(fields, "date")
		}
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

// tourFor loads the tour and checks the guest count against its group size
func (s *BookingService) tourFor(ctx context.Context, tourID string, guests int) (*models.Tour, error) {
	tour, err := s.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("tour %s: %w", tourID, err)
	}
	if guests < 1 || guests > tour.MaxGroupSize {
		return nil, &models.CapacityExceededError{Requested: guests, Max: tour.MaxGroupSize}
	}
	return tour, nil
}

// fillMissing copies fields the remote answer left out from the record read before the update
func fillMissing(updated, current *models.Booking) {
	if updated.TourID == "" {
		updated.TourID = current.TourID
	}
	if updated.Name == "" {
		updated.Name = current.Name
	}
	if updated.Email == "" {
		updated.Email = current.Email
	}
	if updated.Phone == "" {
		updated.Phone = current.Phone
	}
	if updated.TourDate == "" {
		updated.TourDate = current.TourDate
	}
	if updated.Guests == 0 {
		updated.Guests = current.Guests
	}
	if updated.TotalPrice == 0 {
		updated.TotalPrice = current.TotalPrice
	}
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = current.CreatedAt
	}
}
