package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

// Cache collections
const (
	BookingsCollection  = "bookings"
	EnquiriesCollection = "enquiries"
	PatchesCollection   = "status_patches"
)

// GuestOwner namespaces records created without an identity
const GuestOwner = "guest"

var errRecordMissing = errors.New("record not in local cache")

// RemoteBookings is the booking half of the remote booking service
type RemoteBookings interface {
	CreateBooking(ctx context.Context, payload tourapi.CreateBookingPayload) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error)
}

// RemoteEnquiries is the enquiry half of the remote booking service
type RemoteEnquiries interface {
	CreateEnquiry(ctx context.Context, payload tourapi.CreateEnquiryPayload) (*models.Enquiry, error)
	ListEnquiries(ctx context.Context) ([]models.Enquiry, error)
	UpdateEnquiryStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error)
}

// Remote is everything the repositories need from the remote service
type Remote interface {
	RemoteBookings
	RemoteEnquiries
}

// localScope decides which cache documents a repository touches.
// An empty owner reads across every namespace of a collection.
type localScope struct {
	cache  database.CacheStore
	owner  string
	logger *logrus.Logger
}

func (s localScope) keys(ctx context.Context, collection string) ([]string, error) {
	if s.owner != "" {
		return []string{database.Namespace(collection, s.owner)}, nil
	}
	return s.cache.Keys(ctx, collection+"_")
}

func (s localScope) writeKey(collection string) string {
	owner := s.owner
	if owner == "" {
		owner = GuestOwner
	}
	return database.Namespace(collection, owner)
}

// decodeDocument parses a cache document; unparsable data reads as empty
func decodeDocument[T any](logger *logrus.Logger, key string, raw []byte) []T {
	if len(raw) == 0 {
		return nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.WithFields(logrus.Fields{
			"cache_key": key,
			"error":     err.Error(),
		}).Error("Unparsable local cache document, treating it as empty")
		return nil
	}
	return items
}

// loadScope reads every document in scope. Store errors are logged and skipped.
func loadScope[T any](ctx context.Context, s localScope, collection string) []T {
	keys, err := s.keys(ctx, collection)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"collection": collection,
			"error":      err.Error(),
		}).Error("Failed to list local cache keys")
		return nil
	}

	var all []T
	for _, key := range keys {
		raw, err := s.cache.Load(ctx, key)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"cache_key": key,
				"error":     err.Error(),
			}).Error("Failed to read local cache")
			continue
		}
		all = append(all, decodeDocument[T](s.logger, key, raw)...)
	}
	return all
}

// appendDocument adds one item to a document in a single atomic rewrite
func appendDocument[T any](ctx context.Context, s localScope, key string, item T) error {
	return s.cache.Update(ctx, key, func(current []byte) ([]byte, error) {
		items := decodeDocument[T](s.logger, key, current)
		items = append(items, item)
		return json.Marshal(items)
	})
}

// patchDocument applies fn to the first matching item in scope and returns it
// together with the key of the document that held it.
func patchDocument[T any](ctx context.Context, s localScope, collection string, match func(*T) bool, fn func(*T)) (*T, string, error) {
	keys, err := s.keys(ctx, collection)
	if err != nil {
		return nil, "", err
	}

	for _, key := range keys {
		var patched *T
		err := s.cache.Update(ctx, key, func(current []byte) ([]byte, error) {
			items := decodeDocument[T](s.logger, key, current)
			for i := range items {
				if !match(&items[i]) {
					continue
				}
				fn(&items[i])
				item := items[i]
				patched = &item
				return json.Marshal(items)
			}
			return nil, errRecordMissing
		})
		if errors.Is(err, errRecordMissing) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return patched, key, nil
	}
	return nil, "", errRecordMissing
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ownerOf recovers the namespace owner from a document key
func ownerOf(collection, key string) string {
	if owner, ok := database.OwnerFromKey(collection, key); ok {
		return owner
	}
	return GuestOwner
}
