package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/middleware"
	"github.com/tourexplorer/booking-engine/internal/repository"
	"github.com/tourexplorer/booking-engine/internal/services"
	"github.com/tourexplorer/booking-engine/pkg/jwt"
	"github.com/tourexplorer/booking-engine/pkg/relay"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

const (
	customerEmail = "ana@example.com"
	otherEmail    = "ben@example.com"
	operatorEmail = "ops@example.com"
)

// relayRecorder counts messages received by a fake relay
type relayRecorder struct {
	mu       sync.Mutex
	messages []relay.Message
}

func (r *relayRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type testServer struct {
	router     *gin.Engine
	jwt        *jwt.Service
	relay      *relayRecorder
	dispatcher *services.NotificationDispatcher
}

// setupTestServer wires the API over a remote service that is down, an
// in-memory cache and a fake relay
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
}

// setupOnlineTestServer wires the API over a reachable remote booking service
func setupOnlineTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServer(t, &bookingRemote{})
}

// bookingRemote stores bookings in memory. Tours stay unavailable so the
// catalog falls back to the seed.
type bookingRemote struct {
	mu       sync.Mutex
	bookings []map[string]interface{}
}

func (b *bookingRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.URL.Path != "/bookings" {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var data interface{}
	switch r.Method {
	case http.MethodPost:
		var booking map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		booking["_id"] = fmt.Sprintf("remote-%d", len(b.bookings)+1)
		booking["status"] = "pending"
		booking["createdAt"] = time.Now().UTC()
		b.bookings = append(b.bookings, booking)
		data = booking
	case http.MethodGet:
		data = b.bookings
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
}

func newTestServer(t *testing.T, remoteHandler http.Handler) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	remoteServer := httptest.NewServer(remoteHandler)
	t.Cleanup(remoteServer.Close)

	recorder := &relayRecorder{}
	relayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg relay.Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		recorder.mu.Lock()
		recorder.messages = append(recorder.messages, msg)
		recorder.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "message": "queued"}`))
	}))
	t.Cleanup(relayServer.Close)

	remote := tourapi.NewClient(tourapi.Config{BaseURL: remoteServer.URL, Timeout: time.Second})
	provider := repository.NewProvider(remote, database.NewMemoryCacheStore(), logger)
	bookingStores := func(owner string) services.BookingStore { return provider.Bookings(owner) }
	enquiryStores := func(owner string) services.EnquiryStore { return provider.Enquiries(owner) }

	catalog := services.NewCatalogService(remote, logger)
	dispatcher := services.NewNotificationDispatcher(
		relay.NewClient(relay.Config{URL: relayServer.URL, Sender: "TourExplorer"}),
		services.DispatcherConfig{QueueSize: 10, Workers: 1},
		logger,
	)
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	t.Cleanup(func() {
		dispatcher.Stop()
		cancel()
	})

	bookingService := services.NewBookingService(bookingStores, catalog, dispatcher, logger)
	enquiryService := services.NewEnquiryService(enquiryStores, logger)
	statsService := services.NewStatsService(catalog, bookingStores, enquiryStores, logger)
	cronService := services.NewCronService(services.NewReconcileService(provider, logger), "0 */5 * * * *", logger)

	jwtService := jwt.NewService("handler-test-secret", time.Hour)
	router := gin.New()
	Routes{
		Tours:     NewTourHandler(catalog, logger),
		Bookings:  NewBookingHandler(bookingService, logger),
		Enquiries: NewEnquiryHandler(enquiryService, logger),
		Admin:     NewAdminHandler(bookingService, enquiryService, statsService, cronService, logger),
	}.Register(router, middleware.AuthMiddleware(jwtService, logger), middleware.RequireOperator())

	return &testServer{
		router:     router,
		jwt:        jwtService,
		relay:      recorder,
		dispatcher: dispatcher,
	}
}

func (s *testServer) token(t *testing.T, email string, roles ...string) string {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(email, roles)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func bookingBody() map[string]interface{} {
	return map[string]interface{}{
		"tourId": "2",
		"name":   "Ana Perera",
		"email":  customerEmail,
		"phone":  "+94 77 123 4567",
		"date":   "2026-12-01",
		"guests": 2,
	}
}
