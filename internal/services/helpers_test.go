package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/internal/repository"
	"github.com/tourexplorer/booking-engine/pkg/relay"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubRemote is an in-memory remote booking service
type stubRemote struct {
	mu        sync.Mutex
	online    bool
	seq       int
	bookings  []models.Booking
	enquiries []models.Enquiry
}

func (r *stubRemote) setOnline(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online = on
}

func (r *stubRemote) bookingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *stubRemote) unavailable() error {
	return fmt.Errorf("%w: stub offline", tourapi.ErrUnavailable)
}

func (r *stubRemote) CreateBooking(ctx context.Context, p tourapi.CreateBookingPayload) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return nil, r.unavailable()
	}
	r.seq++
	b := models.Booking{
		ID:             fmt.Sprintf("remote-%d", r.seq),
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
		CreatedAt:      time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond),
	}
	r.bookings = append(r.bookings, b)
	return &b, nil
}

func (r *stubRemote) ListBookings(ctx context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return nil, r.unavailable()
	}
	return append([]models.Booking(nil), r.bookings...), nil
}

func (r *stubRemote) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return nil, r.unavailable()
	}
	for i := range r.bookings {
		if r.bookings[i].ID == id {
			r.bookings[i].Status = status
			b := r.bookings[i]
			return &b, nil
		}
	}
	return nil, tourapi.ErrNotFound
}

func (r *stubRemote) CreateEnquiry(ctx context.Context, p tourapi.CreateEnquiryPayload) (*models.Enquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return nil, r.unavailable()
	}
	r.seq++
	e := models.Enquiry{
		ID:            fmt.Sprintf("remote-%d", r.seq),
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
	r.enquiries = append(r.enquiries, e)
	return &e, nil
}

func (r *stubRemote) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return nil, r.unavailable()
	}
	return append([]models.Enquiry(nil), r.enquiries...), nil
}

func (r *stubRemote) UpdateEnquiryStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return nil, r.unavailable()
	}
	for i := range r.enquiries {
		if r.enquiries[i].ID == id {
			r.enquiries[i].Status = status
			e := r.enquiries[i]
			return &e, nil
		}
	}
	return nil, tourapi.ErrNotFound
}

// recordingSender counts relay attempts
type recordingSender struct {
	mu       sync.Mutex
	err      error
	messages []relay.Message
}

func (s *recordingSender) Send(ctx context.Context, msg relay.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSender) Name() string {
	return "recording"
}

func (s *recordingSender) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *recordingSender) last() relay.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

// stubPublisher returns a fixed outcome and records events
type stubPublisher struct {
	outcome Outcome
	events  []models.BookingEvent
}

func (p *stubPublisher) Publish(event models.BookingEvent) Outcome {
	p.events = append(p.events, event)
	return p.outcome
}

type bookingTestEnv struct {
	service    *BookingService
	remote     *stubRemote
	cache      *database.MemoryCacheStore
	provider   *repository.Provider
	sender     *recordingSender
	dispatcher *NotificationDispatcher
	catalog    *CatalogService
}

func bookingStores(p *repository.Provider) BookingStoreFactory {
	return func(owner string) BookingStore { return p.Bookings(owner) }
}

func enquiryStores(p *repository.Provider) EnquiryStoreFactory {
	return func(owner string) EnquiryStore { return p.Enquiries(owner) }
}

// setupBookingServiceTest wires the booking service over an in-memory remote,
// an in-memory cache and a started notification dispatcher
func setupBookingServiceTest(t *testing.T) (*bookingTestEnv, func()) {
	t.Helper()

	logger := testLogger()
	remote := &stubRemote{online: true}
	cache := database.NewMemoryCacheStore()
	provider := repository.NewProvider(remote, cache, logger)
	catalog := NewCatalogService(&stubTourSource{tours: remoteTours()}, logger)
	sender := &recordingSender{}
	dispatcher := NewNotificationDispatcher(sender, DispatcherConfig{QueueSize: 10, Workers: 1}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)

	env := &bookingTestEnv{
		service:    NewBookingService(bookingStores(provider), catalog, dispatcher, logger),
		remote:     remote,
		cache:      cache,
		provider:   provider,
		sender:     sender,
		dispatcher: dispatcher,
		catalog:    catalog,
	}

	cleanup := func() {
		dispatcher.Stop()
		cancel()
	}
	return env, cleanup
}

func validRequest() *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		TourID: "a",
		Name:   "Ana Perera",
		Email:  "ana@example.com",
		Phone:  "0771234567",
		Date:   "2026-12-01",
		Guests: 2,
		Customizations: models.Customizations{
			RoomType:   "suite",
			MealPlan:   "allInclusive",
			Transport:  "luxury",
			Extras:     map[string]bool{"insurance": true},
			Activities: []string{"hiking"},
		},
	}
}

func (r *stubRemote) bookingStatus(id string) models.BookingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			return b.Status
		}
	}
	return ""
}
