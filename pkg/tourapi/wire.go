package tourapi

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/tourexplorer/booking-engine/internal/models"
)

// The remote service is a document store and may answer with "_id" instead of "id",
// and with the referenced tour populated as an object.

type refWire struct {
	ID      string `json:"id"`
	MongoID string `json:"_id"`
}

func (r refWire) id() string {
	if r.ID != "" {
		return r.ID
	}
	return r.MongoID
}

type tourWire struct {
	refWire
	Name         string  `json:"name"`
	Location     string  `json:"location"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Duration     string  `json:"duration"`
	DurationDays int     `json:"durationDays"`
	Rating       float64 `json:"rating"`
	MaxGroupSize int     `json:"maxGroupSize"`
	Image        string  `json:"image"`
	Featured     bool    `json:"featured"`
}

func (w tourWire) toModel() models.Tour {
	days := w.DurationDays
	if days == 0 {
		days = leadingInt(w.Duration)
	}
	return models.Tour{
		ID:           w.id(),
		Name:         w.Name,
		Location:     w.Location,
		Description:  w.Description,
		BasePrice:    w.Price,
		DurationDays: days,
		MaxGroupSize: w.MaxGroupSize,
		Rating:       w.Rating,
		Image:        w.Image,
		Featured:     w.Featured,
	}
}

type bookingWire struct {
	refWire
	TourID         string                `json:"tourId"`
	Tour           json.RawMessage       `json:"tour,omitempty"`
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone"`
	Owner          string                `json:"owner"`
	Date           string                `json:"date"`
	Guests         int                   `json:"guests"`
	Customizations models.Customizations `json:"customizations"`
	TotalPrice     float64               `json:"totalPrice"`
	Status         models.BookingStatus  `json:"status"`
	PaymentStatus  models.PaymentStatus  `json:"paymentStatus"`
	CorrelationID  string                `json:"correlationId"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func (w bookingWire) toModel() models.Booking {
	tourID := w.TourID
	if tourID == "" && len(w.Tour) > 0 {
		tourID = refID(w.Tour)
	}
	status := w.Status
	if status == "" {
		status = models.BookingStatusPending
	}
	payment := w.PaymentStatus
	if payment == "" {
		payment = models.PaymentStatusPending
	}
	return models.Booking{
		ID:             w.id(),
		TourID:         tourID,
		Name:           w.Name,
		Email:          w.Email,
		Phone:          w.Phone,
		Owner:          w.Owner,
		TourDate:       w.Date,
		Guests:         w.Guests,
		Customizations: w.Customizations,
		TotalPrice:     w.TotalPrice,
		Status:         status,
		PaymentStatus:  payment,
		CorrelationID:  w.CorrelationID,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

type enquiryWire struct {
	refWire
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	Destination   string               `json:"destination"`
	Message       string               `json:"message"`
	Owner         string               `json:"owner"`
	Status        models.EnquiryStatus `json:"status"`
	CorrelationID string               `json:"correlationId"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func (w enquiryWire) toModel() models.Enquiry {
	status := w.Status
	if status == "" {
		status = models.EnquiryStatusNew
	}
	return models.Enquiry{
		ID:            w.id(),
		Name:          w.Name,
		Email:         w.Email,
		Phone:         w.Phone,
		Destination:   w.Destination,
		Message:       w.Message,
		Owner:         w.Owner,
		Status:        status,
		CorrelationID: w.CorrelationID,
		CreatedAt:     w.CreatedAt,
	}
}

// refID reads a reference that is either a bare id string or a populated object
func refID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var ref refWire
	if err := json.Unmarshal(raw, &ref); err == nil {
		return ref.id()
	}
	return ""
}

// leadingInt parses durations such as "7 days"
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
