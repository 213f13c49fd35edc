package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

// fakeRemote is an in-memory remote booking service that can be taken offline
type fakeRemote struct {
	mu        sync.Mutex
	online    bool
	loseReply bool
	seq       int
	bookings  []models.Booking
	enquiries []models.Enquiry
	patches   int
}

func (f *fakeRemote) setOnline(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = on
}

// setLoseReply makes the service store writes but answer with an error
func (f *fakeRemote) setLoseReply(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loseReply = on
}

func (f *fakeRemote) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeRemote) bookingStatus(id string) models.BookingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == id {
			return b.Status
		}
	}
	return ""
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.online {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	body, _ := io.ReadAll(r.Body)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case parts[0] == "bookings" && len(parts) == 1 && r.Method == http.MethodPost:
		var p tourapi.CreateBookingPayload
		json.Unmarshal(body, &p)
		f.seq++
		b := models.Booking{
			ID:             fmt.Sprintf("remote-%d", f.seq),
			TourID:         p.TourID,
			Name:           p.Name,
			Email:          p.Email,
			Phone:          p.Phone,
			Owner:          p.Owner,
			TourDate:       p.Date,
			Guests:         p.Guests,
			Customizations: p.Customizations,
			TotalPrice:     p.TotalPrice,
			Status:         models.BookingStatusPending,
			PaymentStatus:  models.PaymentStatusPending,
			CorrelationID:  p.CorrelationID,
			CreatedAt:      time.Now().UTC(),
		}
		f.bookings = append(f.bookings, b)
		if f.loseReply {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, http.StatusCreated, b)

	case parts[0] == "bookings" && len(parts) == 1:
		writeEnvelope(w, http.StatusOK, f.bookings)

	case parts[0] == "bookings" && r.Method == http.MethodPatch:
		var p struct {
			Status string `json:"status"`
		}
		json.Unmarshal(body, &p)
		for i := range f.bookings {
			if f.bookings[i].ID == parts[1] {
				f.patches++
				f.bookings[i].Status = models.BookingStatus(p.Status)
				writeEnvelope(w, http.StatusOK, f.bookings[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	case parts[0] == "enquiries" && len(parts) == 1 && r.Method == http.MethodPost:
		var p tourapi.CreateEnquiryPayload
		json.Unmarshal(body, &p)
		f.seq++
		e := models.Enquiry{
			ID:            fmt.Sprintf("remote-%d", f.seq),
			Name:          p.Name,
			Email:         p.Email,
			Phone:         p.Phone,
			Destination:   p.Destination,
			Message:       p.Message,
			Owner:         p.Owner,
			Status:        models.EnquiryStatusNew,
			CorrelationID: p.CorrelationID,
			CreatedAt:     time.Now().UTC(),
		}
		f.enquiries = append(f.enquiries, e)
		writeEnvelope(w, http.StatusCreated, e)

	case parts[0] == "enquiries" && len(parts) == 1:
		writeEnvelope(w, http.StatusOK, f.enquiries)

	case parts[0] == "enquiries" && r.Method == http.MethodPatch:
		var p struct {
			Status string `json:"status"`
		}
		json.Unmarshal(body, &p)
		for i := range f.enquiries {
			if f.enquiries[i].ID == parts[1] {
				f.enquiries[i].Status = models.EnquiryStatus(p.Status)
				writeEnvelope(w, http.StatusOK, f.enquiries[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupRepositoryTest wires a provider over a fake remote and an in-memory cache
func setupRepositoryTest(t *testing.T) (*Provider, *fakeRemote, *database.MemoryCacheStore, func()) {
	t.Helper()

	remote := &fakeRemote{online: true}
	server := httptest.NewServer(remote)
	client := tourapi.NewClient(tourapi.Config{BaseURL: server.URL, Timeout: time.Second})
	cache := database.NewMemoryCacheStore()

	return NewProvider(client, cache, testLogger()), remote, cache, server.Close
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		TourID:     "tour-ella",
		Name:       "Ana Perera",
		Email:      "ana@example.com",
		Phone:      "0771234567",
		TourDate:   "2026-12-01",
		Guests:     2,
		TotalPrice: 1665,
	}
}
