package models

import (
	"strings"
	"time"
)

// EnquiryStatus represents the follow-up state of an enquiry
type EnquiryStatus string

const (
	EnquiryStatusNew       EnquiryStatus = "new"
	EnquiryStatusContacted EnquiryStatus = "contacted"
	EnquiryStatusConverted EnquiryStatus = "converted"
	EnquiryStatusClosed    EnquiryStatus = "closed"
)

// IsValid returns true if the status is a recognized enquiry status
func (s EnquiryStatus) IsValid() bool {
	switch s {
	case EnquiryStatusNew, EnquiryStatusContacted, EnquiryStatusConverted, EnquiryStatusClosed:
		return true
	}
	return false
}

// Enquiry represents a contact request from a prospective traveler
type Enquiry struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Destination   string        `json:"destination,omitempty"`
	Message       string        `json:"message,omitempty"`
	Owner         string        `json:"owner,omitempty"`
	Status        EnquiryStatus `json:"status"`
	CorrelationID string        `json:"correlationId,omitempty"`
	RemoteID      string        `json:"remoteId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// CreateEnquiryRequest represents the contact form
type CreateEnquiryRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

// MissingFields lists the required fields left empty
func (r *CreateEnquiryRequest) MissingFields() []string {
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
	return missing
}

// EnquiryFilter narrows an enquiry listing
type EnquiryFilter struct {
	Status EnquiryStatus `form:"status"`
}
