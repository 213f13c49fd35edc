package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

// BookingRepository stores bookings remote-first and falls back to the
// owner's local cache namespace when the remote service is unavailable.
// Remote unavailability never escapes it.
type BookingRepository struct {
	remote  RemoteBookings
	scope   localScope
	patches *PatchQueue
}

// NewBookingRepository creates a repository for one owner namespace.
// An empty owner reads and updates across every namespace.
func NewBookingRepository(remote Remote, cache database.CacheStore, owner string, logger *logrus.Logger) *BookingRepository {
	return &BookingRepository{
		remote:  remote,
		scope:   localScope{cache: cache, owner: owner, logger: logger},
		patches: NewPatchQueue(remote, cache, owner, logger),
	}
}

// Owner returns the namespace owner, empty for the cross-namespace view
func (r *BookingRepository) Owner() string {
	return r.scope.owner
}

// Create persists a new booking. The remote copy is authoritative; only when
// the remote write fails is the booking kept locally under a local id.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if b.CorrelationID == "" {
		b.CorrelationID = uuid.NewString()
	}
	if b.Owner == "" {
		b.Owner = r.scope.owner
	}

	created, err := r.remote.CreateBooking(ctx, tourapi.CreateBookingPayload{
		TourID:         b.TourID,
		Name:           b.Name,
		Email:          b.Email,
		Phone:          b.Phone,
		Date:           b.TourDate,
		Guests:         b.Guests,
		Customizations: b.Customizations,
		TotalPrice:     b.TotalPrice,
		Owner:          b.Owner,
		CorrelationID:  b.CorrelationID,
	})
	if err == nil {
		// The service may not echo fields it does not store
		if created.CorrelationID == "" {
			created.CorrelationID = b.CorrelationID
		}
		if created.TotalPrice == 0 {
			created.TotalPrice = b.TotalPrice
		}
		if created.Owner == "" {
			created.Owner = b.Owner
		}
		return created, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	r.scope.logger.WithFields(logrus.Fields{
		"owner":          r.scope.owner,
		"correlation_id": b.CorrelationID,
		"error":          err.Error(),
	}).Warn("Remote booking create failed, storing booking locally")

	now := time.Now().UTC()
	local := *b
	local.ID = models.LocalIDPrefix + uuid.NewString()
	local.RemoteID = ""
	local.Status = models.BookingStatusPending
	if local.PaymentStatus == "" {
		local.PaymentStatus = models.PaymentStatusPending
	}
	local.CreatedAt = now
	local.UpdatedAt = now

	if err := appendDocument(ctx, r.scope, r.scope.writeKey(BookingsCollection), local); err != nil {
		return nil, fmt.Errorf("failed to store booking locally: %w", err)
	}
	return &local, nil
}

// List returns the merged remote and local view, filtered
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	local := loadScope[models.Booking](ctx, r.scope, BookingsCollection)

	remote, err := r.remote.ListBookings(ctx)
	var merged []models.Booking
	if err != nil {
		r.scope.logger.WithFields(logrus.Fields{
			"owner": r.scope.owner,
			"error": err.Error(),
		}).Warn("Remote booking list failed, serving local cache")
		merged = Resolve(nil, local, nil)
	} else {
		merged = Resolve(remote, local, r.patches.Pending(ctx))
	}
	if r.scope.owner != "" {
		merged = OwnedBookings(merged, local, r.scope.owner)
	}

	filtered := make([]models.Booking, 0, len(merged))
	for i := range merged {
		if filter.Matches(&merged[i]) {
			filtered = append(filtered, merged[i])
		}
	}
	return filtered, nil
}

// Get finds a booking by its id or by the remote id remembered on a local
// record. A local id that has since been reconciled resolves to the remote copy.
func (r *BookingRepository) Get(ctx context.Context, id string) (*models.Booking, error) {
	bookings, err := r.List(ctx, models.BookingFilter{})
	if err != nil {
		return nil, err
	}
	if b := findBooking(bookings, id); b != nil {
		return b, nil
	}

	if models.IsLocalID(id) {
		for _, l := range loadScope[models.Booking](ctx, r.scope, BookingsCollection) {
			if l.ID != id {
				continue
			}
			for i := range bookings {
				if (l.RemoteID != "" && bookings[i].ID == l.RemoteID) ||
					(l.CorrelationID != "" && bookings[i].CorrelationID == l.CorrelationID) {
					b := bookings[i]
					return &b, nil
				}
			}
		}
	}
	return nil, models.ErrNotFound
}

func findBooking(bookings []models.Booking, id string) *models.Booking {
	for i := range bookings {
		if bookings[i].ID == id || (bookings[i].RemoteID != "" && bookings[i].RemoteID == id) {
			b := bookings[i]
			return &b
		}
	}
	return nil
}

// UpdateStatus writes a status change. Remote-shaped ids go to the remote
// service; local ids are patched in place. Whether the change is legal is
// decided by the caller.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	if models.IsLocalID(id) {
		return r.updateLocal(ctx, id, status)
	}
	return r.updateRemote(ctx, id, status)
}

func (r *BookingRepository) updateRemote(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	updated, err := r.remote.UpdateBookingStatus(ctx, id, status)
	if err == nil {
		r.syncLocalCopy(ctx, id, status)
		return updated, nil
	}
	if errors.Is(err, tourapi.ErrNotFound) {
		return nil, models.ErrNotFound
	}

	r.scope.logger.WithFields(logrus.Fields{
		"booking_id": id,
		"status":     status,
		"error":      err.Error(),
	}).Warn("Remote booking status update failed, falling back to local cache")

	// Without a local copy there is nothing to fall back on
	patched, key, perr := r.patchLocal(ctx, func(b *models.Booking) bool { return b.RemoteID == id }, status)
	if errors.Is(perr, errRecordMissing) {
		return nil, models.ErrNotFound
	}
	if perr != nil {
		return nil, fmt.Errorf("failed to update local booking %s: %w", id, perr)
	}

	if err := r.queue(ctx, key, id, status); err != nil {
		return nil, err
	}
	return patched, nil
}

func (r *BookingRepository) updateLocal(ctx context.Context, id string, status models.BookingStatus) (*models.Booking, error) {
	patched, key, err := r.patchLocal(ctx, func(b *models.Booking) bool { return b.ID == id }, status)
	if errors.Is(err, errRecordMissing) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update local booking %s: %w", id, err)
	}

	if patched.RemoteID == "" {
		return patched, nil
	}

	// Reconciled record: the remote copy must follow
	if _, err := r.remote.UpdateBookingStatus(ctx, patched.RemoteID, status); err != nil {
		if errors.Is(err, tourapi.ErrNotFound) {
			r.scope.logger.WithFields(logrus.Fields{
				"booking_id": id,
				"remote_id":  patched.RemoteID,
			}).Warn("Remote copy of reconciled booking is gone")
			return patched, nil
		}
		if err := r.queue(ctx, key, patched.RemoteID, status); err != nil {
			return nil, err
		}
	}
	return patched, nil
}

func (r *BookingRepository) patchLocal(ctx context.Context, match func(*models.Booking) bool, status models.BookingStatus) (*models.Booking, string, error) {
	return patchDocument(ctx, r.scope, BookingsCollection, match, func(b *models.Booking) {
		b.Status = status
		b.UpdatedAt = time.Now().UTC()
	})
}

// syncLocalCopy keeps a reconciled local record in step with a successful remote update
func (r *BookingRepository) syncLocalCopy(ctx context.Context, remoteID string, status models.BookingStatus) {
	_, _, err := r.patchLocal(ctx, func(b *models.Booking) bool { return b.RemoteID == remoteID }, status)
	if err != nil && !errors.Is(err, errRecordMissing) {
		r.scope.logger.WithFields(logrus.Fields{
			"remote_id": remoteID,
			"error":     err.Error(),
		}).Error("Failed to sync local copy of booking")
	}
	if err := dropPatch(ctx, r.scope, BookingsCollection, remoteID); err != nil {
		r.scope.logger.WithFields(logrus.Fields{
			"remote_id": remoteID,
			"error":     err.Error(),
		}).Error("Failed to drop superseded status patch")
	}
}

func (r *BookingRepository) queue(ctx context.Context, bookingKey, remoteID string, status models.BookingStatus) error {
	return queuePatch(ctx, r.scope, ownerOf(BookingsCollection, bookingKey), StatusPatch{
		Collection: BookingsCollection,
		ID:         remoteID,
		Status:     string(status),
		QueuedAt:   time.Now().UTC(),
	})
}

// PushResult summarises one reconciliation pass over a namespace
type PushResult struct {
	Pushed  int `json:"pushed"`
	Pending int `json:"pending"`
}

// PushLocal sends local-only bookings to the remote service with their
// correlation id and remembers the remote id on the local record. It stops
// at the first failure; the remaining records stay local.
func (r *BookingRepository) PushLocal(ctx context.Context) (PushResult, error) {
	var result PushResult

	keys, err := r.scope.keys(ctx, BookingsCollection)
	if err != nil {
		return result, fmt.Errorf("failed to list booking namespaces: %w", err)
	}

	for k, key := range keys {
		raw, err := r.scope.cache.Load(ctx, key)
		if err != nil {
			return result, fmt.Errorf("failed to load %s: %w", key, err)
		}
		bookings := decodeDocument[models.Booking](r.scope.logger, key, raw)
		owner := ownerOf(BookingsCollection, key)

		for i, b := range bookings {
			if !b.IsLocal() || b.RemoteID != "" {
				continue
			}

			created, err := r.remote.CreateBooking(ctx, tourapi.CreateBookingPayload{
				TourID:         b.TourID,
				Name:           b.Name,
				Email:          b.Email,
				Phone:          b.Phone,
				Date:           b.TourDate,
				Guests:         b.Guests,
				Customizations: b.Customizations,
				TotalPrice:     b.TotalPrice,
				Owner:          firstNonEmpty(b.Owner, owner),
				CorrelationID:  b.CorrelationID,
			})
			if err != nil {
				result.Pending += countUnpushed(bookings[i:])
				for _, rest := range keys[k+1:] {
					result.Pending += countUnpushed(loadScope[models.Booking](ctx, localScope{cache: r.scope.cache, owner: ownerOf(BookingsCollection, rest), logger: r.scope.logger}, BookingsCollection))
				}
				return result, err
			}

			localID := b.ID
			if _, _, err := patchDocument(ctx, localScope{cache: r.scope.cache, owner: owner, logger: r.scope.logger},
				BookingsCollection,
				func(x *models.Booking) bool { return x.ID == localID },
				func(x *models.Booking) { x.RemoteID = created.ID },
			); err != nil {
				return result, fmt.Errorf("failed to remember remote id for %s: %w", localID, err)
			}
			result.Pushed++

			r.scope.logger.WithFields(logrus.Fields{
				"booking_id": localID,
				"remote_id":  created.ID,
			}).Info("Local booking reconciled with remote service")

			// A status decided while offline must reach the remote copy too
			if b.Status != models.BookingStatusPending {
				if _, err := r.remote.UpdateBookingStatus(ctx, created.ID, b.Status); err != nil {
					if qerr := r.queue(ctx, key, created.ID, b.Status); qerr != nil {
						return result, qerr
					}
				}
			}
		}
	}
	return result, nil
}

func countUnpushed(bookings []models.Booking) int {
	n := 0
	for _, b := range bookings {
		if b.IsLocal() && b.RemoteID == "" {
			n++
		}
	}
	return n
}
