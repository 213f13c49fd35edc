package tourapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tourexplorer/booking-engine/internal/models"
)

var (
	// ErrUnavailable covers network errors, timeouts, non-2xx answers and
	// malformed bodies. Callers fall back to the local cache on it.
	ErrUnavailable = errors.New("remote booking service unavailable")

	// ErrNotFound is a definite 404 from the remote service
	ErrNotFound = errors.New("remote record not found")
)

// Client talks to the remote booking service
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// Config holds configuration for the remote client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new remote booking service client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// envelope is the response wrapper used by every endpoint
type envelope[T any] struct {
	Success bool   `json:"success"`
	Count   int    `json:"count,omitempty"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// CreateBookingPayload is the body of POST /bookings
type CreateBookingPayload struct {
	TourID         string                `json:"tourId"`
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone"`
	Date           string                `json:"date"`
	Guests         int                   `json:"guests"`
	Customizations models.Customizations `json:"customizations"`
	TotalPrice     float64               `json:"totalPrice"`
	Owner          string                `json:"owner,omitempty"`
	CorrelationID  string                `json:"correlationId,omitempty"`
}

// CreateEnquiryPayload is the body of POST /enquiries
type CreateEnquiryPayload struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Destination   string `json:"destination,omitempty"`
	Message       string `json:"message,omitempty"`
	Owner         string `json:"owner,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type statusPayload struct {
	Status string `json:"status"`
}

// ListTours fetches the remote tour catalog
func (c *Client) ListTours(ctx context.Context) ([]models.Tour, error) {
	var resp envelope[[]tourWire]
	if err := c.do(ctx, http.MethodGet, "/tours", nil, &resp); err != nil {
		return nil, err
	}
	tours := make([]models.Tour, 0, len(resp.Data))
	for _, w := range resp.Data {
		tours = append(tours, w.toModel())
	}
	return tours, nil
}

// CreateBooking submits a booking; the returned id is authoritative
func (c *Client) CreateBooking(ctx context.Context, payload CreateBookingPayload) (*models.Booking, error) {
	var resp envelope[bookingWire]
	if err := c.do(ctx, http.MethodPost, "/bookings", payload, &resp); err != nil {
		return nil, err
	}
	booking := resp.Data.toModel()
	if booking.ID == "" {
		return nil, fmt.Errorf("%w: create booking returned no id", ErrUnavailable)
	}
	return &booking, nil
}

// ListBookings fetches every remote booking
func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var resp envelope[[]bookingWire]
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &resp); err != nil {
		return nil, err
	}
	bookings := make([]models.Booking, 0, len(resp.Data))
	for _, w := range resp.Data {
		bookings = append(bookings, w.toModel())
	}
	return bookings, nil
}

// UpdateBookingStatus patches the status of a remote booking
func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	var resp envelope[bookingWire]
	path := "/bookings/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, statusPayload{Status: string(status)}, &resp); err != nil {
		return nil, err
	}
	booking := resp.Data.toModel()
	return &booking, nil
}

// CreateEnquiry submits an enquiry
func (c *Client) CreateEnquiry(ctx context.Context, payload CreateEnquiryPayload) (*models.Enquiry, error) {
	var resp envelope[enquiryWire]
	if err := c.do(ctx, http.MethodPost, "/enquiries", payload, &resp); err != nil {
		return nil, err
	}
	enquiry := resp.Data.toModel()
	if enquiry.ID == "" {
		return nil, fmt.Errorf("%w: create enquiry returned no id", ErrUnavailable)
	}
	return &enquiry, nil
}

// ListEnquiries fetches every remote enquiry
func (c *Client) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	var resp envelope[[]enquiryWire]
	if err := c.do(ctx, http.MethodGet, "/enquiries", nil, &resp); err != nil {
		return nil, err
	}
	enquiries := make([]models.Enquiry, 0, len(resp.Data))
	for _, w := range resp.Data {
		enquiries = append(enquiries, w.toModel())
	}
	return enquiries, nil
}

// UpdateEnquiryStatus patches the status of a remote enquiry
func (c *Client) UpdateEnquiryStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	var resp envelope[enquiryWire]
	path := "/enquiries/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, statusPayload{Status: string(status)}, &resp); err != nil {
		return nil, err
	}
	enquiry := resp.Data.toModel()
	return &enquiry, nil
}

// do performs one bounded request and decodes the JSON answer into out
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s response: %w", ErrUnavailable, method, path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, method, path, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: parsing %s %s response: %w", ErrUnavailable, method, path, err)
	}
	return nil
}
