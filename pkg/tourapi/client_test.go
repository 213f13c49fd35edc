package tourapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourexplorer/booking-engine/internal/models"
)

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:5000/api/", Timeout: 0})

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:5000/api", client.baseURL)
	assert.Equal(t, 3*time.Second, client.timeout)
	assert.NotNil(t, client.client)
}

func TestCreateBooking_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload CreateBookingPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "tour-1", payload.TourID)
		assert.Equal(t, 2, payload.Guests)
		assert.Equal(t, "corr-1", payload.CorrelationID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"data":{"_id":"65f1c0a9e4b0a1b2c3d4e5f6","tour":{"_id":"tour-1","name":"Ella"},"name":"Ana","email":"ana@example.com","phone":"0771234567","date":"2026-12-01","guests":2,"totalPrice":1000,"status":"pending","correlationId":"corr-1","createdAt":"2026-10-18T10:00:00Z"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/api", Timeout: time.Second})
	booking, err := client.CreateBooking(context.Background(), CreateBookingPayload{
		TourID:        "tour-1",
		Name:          "Ana",
		Email:         "ana@example.com",
		Phone:         "0771234567",
		Date:          "2026-12-01",
		Guests:        2,
		TotalPrice:    1000,
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "65f1c0a9e4b0a1b2c3d4e5f6", booking.ID)
	assert.Equal(t, "tour-1", booking.TourID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, "corr-1", booking.CorrelationID)
	assert.Equal(t, 1000.0, booking.TotalPrice)
}

func TestCreateBooking_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "Malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
		},
		{
			name: "Missing id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":true,"data":{"name":"Ana"}}`))
			},
		},
		{
			name: "Timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.Write([]byte(`{"success":true,"data":{"id":"late"}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
			booking, err := client.CreateBooking(context.Background(), CreateBookingPayload{TourID: "t"})

			assert.Nil(t, booking)
			assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 100 * time.Millisecond})
	_, err := client.ListBookings(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestListBookings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		w.Write([]byte(`{"success":true,"count":2,"data":[
			{"id":"r1","tourId":"t1","guests":1,"totalPrice":100,"status":"confirmed","createdAt":"2026-10-01T00:00:00Z"},
			{"_id":"r2","tour":"t2","guests":3,"totalPrice":300,"createdAt":"2026-10-02T00:00:00Z"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})
	bookings, err := client.ListBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, "r1", bookings[0].ID)
	assert.Equal(t, models.BookingStatusConfirmed, bookings[0].Status)
	assert.Equal(t, "r2", bookings[1].ID)
	assert.Equal(t, "t2", bookings[1].TourID)
	assert.Equal(t, models.BookingStatusPending, bookings[1].Status)
}

func TestUpdateBookingStatus(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/bookings/r1", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"status":"confirmed"}`, string(body))
			w.Write([]byte(`{"success":true,"data":{"id":"r1","status":"confirmed","createdAt":"2026-10-01T00:00:00Z"}}`))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})
		booking, err := client.UpdateBookingStatus(context.Background(), "r1", models.BookingStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	})

	t.Run("Not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"Booking not found"}`))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})
		_, err := client.UpdateBookingStatus(context.Background(), "missing", models.BookingStatusConfirmed)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrUnavailable))
	})
}

func TestEnquiries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"success":true,"data":{"_id":"e1","name":"Ana","status":"new","createdAt":"2026-10-01T00:00:00Z"}}`))
		case http.MethodGet:
			w.Write([]byte(`{"success":true,"data":[{"_id":"e1","name":"Ana","createdAt":"2026-10-01T00:00:00Z"}]}`))
		case http.MethodPatch:
			w.Write([]byte(`{"success":true,"data":{"_id":"e1","status":"contacted","createdAt":"2026-10-01T00:00:00Z"}}`))
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})
	ctx := context.Background()

	created, err := client.CreateEnquiry(ctx, CreateEnquiryPayload{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "e1", created.ID)

	list, err := client.ListEnquiries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.EnquiryStatusNew, list[0].Status)

	updated, err := client.UpdateEnquiryStatus(ctx, "e1", models.EnquiryStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusContacted, updated.Status)
}

func TestListTours(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"_id":"t1","name":"Ella Hills","location":"Ella, Sri Lanka","price":500,"duration":"3 days","rating":4.7,"maxGroupSize":8}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})
	tours, err := client.ListTours(context.Background())
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, "t1", tours[0].ID)
	assert.Equal(t, 500.0, tours[0].BasePrice)
	assert.Equal(t, 3, tours[0].DurationDays)
}

func TestLeadingInt(t *testing.T) {
	assert.Equal(t, 7, leadingInt("7 days"))
	assert.Equal(t, 12, leadingInt("12"))
	assert.Equal(t, 0, leadingInt("a week"))
	assert.Equal(t, 0, leadingInt(""))
}
