package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/models"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

// StatusPatch is a status change accepted locally for a remote record
// that the remote service has not acknowledged yet
type StatusPatch struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	QueuedAt   time.Time `json:"queuedAt"`
}

// queuePatch stores a patch for the owner, replacing an older one for the same record
func queuePatch(ctx context.Context, s localScope, owner string, patch StatusPatch) error {
	key := database.Namespace(PatchesCollection, owner)
	err := s.cache.Update(ctx, key, func(current []byte) ([]byte, error) {
		patches := decodeDocument[StatusPatch](s.logger, key, current)
		kept := patches[:0]
		for _, p := range patches {
			if p.Collection == patch.Collection && p.ID == patch.ID {
				continue
			}
			kept = append(kept, p)
		}
		kept = append(kept, patch)
		return json.Marshal(kept)
	})
	if err != nil {
		return fmt.Errorf("failed to queue status patch for %s: %w", patch.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"owner":      owner,
		"collection": patch.Collection,
		"remote_id":  patch.ID,
		"status":     patch.Status,
	}).Warn("Remote status update deferred to reconciliation")
	return nil
}

// dropPatch removes queued patches for a record from every document in scope
func dropPatch(ctx context.Context, s localScope, collection, id string) error {
	keys, err := s.keys(ctx, PatchesCollection)
	if err != nil {
		return err
	}
	for _, key := range keys {
		err := s.cache.Update(ctx, key, func(current []byte) ([]byte, error) {
			patches := decodeDocument[StatusPatch](s.logger, key, current)
			kept := patches[:0]
			for _, p := range patches {
				if p.Collection == collection && p.ID == id {
					continue
				}
				kept = append(kept, p)
			}
			if len(kept) == len(patches) {
				return nil, errRecordMissing
			}
			return json.Marshal(kept)
		})
		if err != nil && !errors.Is(err, errRecordMissing) {
			return err
		}
	}
	return nil
}

// PatchQueue replays deferred status changes against the remote service
type PatchQueue struct {
	remote Remote
	scope  localScope
}

// NewPatchQueue creates the patch queue of one owner namespace
func NewPatchQueue(remote Remote, cache database.CacheStore, owner string, logger *logrus.Logger) *PatchQueue {
	return &PatchQueue{
		remote: remote,
		scope:  localScope{cache: cache, owner: owner, logger: logger},
	}
}

// Pending returns the queued patches in scope
func (q *PatchQueue) Pending(ctx context.Context) []StatusPatch {
	return loadScope[StatusPatch](ctx, q.scope, PatchesCollection)
}

// Replay sends every queued patch to the remote service. Acknowledged and
// definitively rejected patches are dropped; replay stops at the first
// unavailability so the remaining patches keep their order.
func (q *PatchQueue) Replay(ctx context.Context) (int, error) {
	replayed := 0
	for _, p := range q.Pending(ctx) {
		var err error
		switch p.Collection {
		case BookingsCollection:
			_, err = q.remote.UpdateBookingStatus(ctx, p.ID, models.BookingStatus(p.Status))
		case EnquiriesCollection:
			_, err = q.remote.UpdateEnquiryStatus(ctx, p.ID, models.EnquiryStatus(p.Status))
		default:
			q.scope.logger.WithField("collection", p.Collection).Error("Dropping status patch for unknown collection")
			if err := dropPatch(ctx, q.scope, p.Collection, p.ID); err != nil {
				return replayed, fmt.Errorf("failed to drop patch %s: %w", p.ID, err)
			}
			continue
		}

		if errors.Is(err, tourapi.ErrUnavailable) {
			return replayed, err
		}
		if errors.Is(err, tourapi.ErrNotFound) {
			q.scope.logger.WithFields(logrus.Fields{
				"collection": p.Collection,
				"remote_id":  p.ID,
			}).Warn("Remote record no longer exists, dropping status patch")
		} else if err != nil {
			return replayed, err
		} else {
			replayed++
		}

		if err := dropPatch(ctx, q.scope, p.Collection, p.ID); err != nil {
			return replayed, fmt.Errorf("failed to drop replayed patch %s: %w", p.ID, err)
		}
	}
	return replayed, nil
}
