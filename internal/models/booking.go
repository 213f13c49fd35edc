package models

import (
	"strings"
	"time"
)

// BookingStatus represents the approval state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatus represents the payment state of a booking.
// It is carried on the record but never transitioned by the booking engine.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// bookingTransitions is the booking state machine
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {},
	BookingStatusCancelled: {},
}

// IsValid returns true if the status is a recognized booking status
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminal returns true if no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// CanTransitionTo returns true if moving to target is allowed
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Transition is the single place where status changes are decided.
// It returns the new status or an *InvalidTransitionError.
func Transition(current, requested BookingStatus) (BookingStatus, error) {
	if !current.CanTransitionTo(requested) {
		return current, &InvalidTransitionError{From: string(current), To: string(requested)}
	}
	return requested, nil
}

// LocalIDPrefix marks ids synthesized by the local cache
const LocalIDPrefix = "local-"

// IsLocalID reports whether the id was synthesized locally rather than
// assigned by the remote booking service
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Booking represents a customer's request to purchase a tour occurrence
type Booking struct {
	ID             string         `json:"id"`
	TourID         string         `json:"tourId"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	// Owner is the account the booking was made under; Email is only the contact address
	Owner          string         `json:"owner,omitempty"`
	TourDate       string         `json:"date"`
	Guests         int            `json:"guests"`
	Customizations Customizations `json:"customizations"`
	TotalPrice     float64        `json:"totalPrice"`
	Status         BookingStatus  `json:"status"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus"`
	CorrelationID  string         `json:"correlationId,omitempty"`
	RemoteID       string         `json:"remoteId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// IsLocal reports whether the record lives only in the local cache
func (b *Booking) IsLocal() bool {
	return IsLocalID(b.ID)
}

// CreateBookingRequest represents the customer booking form
type CreateBookingRequest struct {
	TourID         string         `json:"tourId"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Date           string         `json:"date"`
	Guests         int            `json:"guests"`
	Customizations Customizations `json:"customizations"`
	// CorrelationID lets a retried submission be recognised; generated when empty
	CorrelationID string `json:"correlationId,omitempty"`
}

// MissingFields lists the required contact fields left empty
func (r *CreateBookingRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(r.Date) == "" {
		missing = append(missing, "date")
	}
	return missing
}

// UpdateStatusRequest is the operator's status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BookingFilter narrows a booking listing
type BookingFilter struct {
	Status BookingStatus `form:"status"`
	TourID string        `form:"tourId"`
}

// Matches reports whether the booking passes the filter
func (f BookingFilter) Matches(b *Booking) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.TourID != "" && b.TourID != f.TourID {
		return false
	}
	return true
}

// BookingEventType names the lifecycle event a notification reports on
type BookingEventType string

const (
	BookingEventConfirmed BookingEventType = "confirmed"
	BookingEventCancelled BookingEventType = "cancelled"
)

// BookingEvent is emitted after a status change has been committed
type BookingEvent struct {
	Type       BookingEventType `json:"type"`
	Booking    Booking          `json:"booking"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// EventForStatus maps a terminal status to the event announcing it
func EventForStatus(s BookingStatus) (BookingEventType, bool) {
	switch s {
	case BookingStatusConfirmed:
		return BookingEventConfirmed, true
	case BookingStatusCancelled:
		return BookingEventCancelled, true
	default:
		return "", false
	}
}
