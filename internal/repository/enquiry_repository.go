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

// EnquiryRepository applies the booking fallback policy to enquiries
type EnquiryRepository struct {
	remote  RemoteEnquiries
	scope   localScope
	patches *PatchQueue
}

// NewEnquiryRepository creates a repository for one owner namespace
func NewEnquiryRepository(remote Remote, cache database.CacheStore, owner string, logger *logrus.Logger) *EnquiryRepository {
	return &EnquiryRepository{
		remote:  remote,
		scope:   localScope{cache: cache, owner: owner, logger: logger},
		patches: NewPatchQueue(remote, cache, owner, logger),
	}
}

// Create stores an enquiry remotely, or locally when the remote write fails
func (r *EnquiryRepository) Create(ctx context.Context, e *models.Enquiry) (*models.Enquiry, error) {
	if e.CorrelationID == "" {
		e.CorrelationID = uuid.NewString()
	}
	if e.Owner == "" {
		e.Owner = r.scope.owner
	}

	created, err := r.remote.CreateEnquiry(ctx, tourapi.CreateEnquiryPayload{
		Name:          e.Name,
		Email:         e.Email,
		Phone:         e.Phone,
		Destination:   e.Destination,
		Message:       e.Message,
		Owner:         e.Owner,
		CorrelationID: e.CorrelationID,
	})
	if err == nil {
		if created.CorrelationID == "" {
			created.CorrelationID = e.CorrelationID
		}
		if created.Owner == "" {
			created.Owner = e.Owner
		}
		return created, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	r.scope.logger.WithFields(logrus.Fields{
		"owner": r.scope.owner,
		"error": err.Error(),
	}).Warn("Remote enquiry create failed, storing enquiry locally")

	local := *e
	local.ID = models.LocalIDPrefix + uuid.NewString()
	local.RemoteID = ""
	local.Status = models.EnquiryStatusNew
	local.CreatedAt = time.Now().UTC()

	if err := appendDocument(ctx, r.scope, r.scope.writeKey(EnquiriesCollection), local); err != nil {
		return nil, fmt.Errorf("failed to store enquiry locally: %w", err)
	}
	return &local, nil
}

// List returns the merged enquiry view, newest first
func (r *EnquiryRepository) List(ctx context.Context, filter models.EnquiryFilter) ([]models.Enquiry, error) {
	local := loadScope[models.Enquiry](ctx, r.scope, EnquiriesCollection)

	var merged []models.Enquiry
	remote, err := r.remote.ListEnquiries(ctx)
	if err != nil {
		r.scope.logger.WithFields(logrus.Fields{
			"owner": r.scope.owner,
			"error": err.Error(),
		}).Warn("Remote enquiry list failed, serving local cache")
		merged = ResolveEnquiries(nil, local, nil)
	} else {
		merged = ResolveEnquiries(remote, local, r.patches.Pending(ctx))
	}
	if r.scope.owner != "" {
		merged = OwnedEnquiries(merged, local, r.scope.owner)
	}

	if filter.Status == "" {
		return merged, nil
	}
	filtered := make([]models.Enquiry, 0, len(merged))
	for _, e := range merged {
		if e.Status == filter.Status {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// UpdateStatus sets an enquiry status; any known status may follow any other
func (r *EnquiryRepository) UpdateStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	if !models.IsLocalID(id) {
		updated, err := r.remote.UpdateEnquiryStatus(ctx, id, status)
		if err == nil {
			r.syncLocalCopy(ctx, id, status)
			return updated, nil
		}
		if errors.Is(err, tourapi.ErrNotFound) {
			return nil, models.ErrNotFound
		}

		r.scope.logger.WithFields(logrus.Fields{
			"enquiry_id": id,
			"error":      err.Error(),
		}).Warn("Remote enquiry status update failed, falling back to local cache")

		patched, key, perr := r.patchLocal(ctx, func(e *models.Enquiry) bool { return e.RemoteID == id }, status)
		if errors.Is(perr, errRecordMissing) {
			return nil, models.ErrNotFound
		}
		if perr != nil {
			return nil, fmt.Errorf("failed to update local enquiry %s: %w", id, perr)
		}
		if err := r.queue(ctx, key, id, status); err != nil {
			return nil, err
		}
		return patched, nil
	}

	patched, key, err := r.patchLocal(ctx, func(e *models.Enquiry) bool { return e.ID == id }, status)
	if errors.Is(err, errRecordMissing) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update local enquiry %s: %w", id, err)
	}
	if patched.RemoteID != "" {
		if _, err := r.remote.UpdateEnquiryStatus(ctx, patched.RemoteID, status); err != nil && !errors.Is(err, tourapi.ErrNotFound) {
			if err := r.queue(ctx, key, patched.RemoteID, status); err != nil {
				return nil, err
			}
		}
	}
	return patched, nil
}

func (r *EnquiryRepository) patchLocal(ctx context.Context, match func(*models.Enquiry) bool, status models.EnquiryStatus) (*models.Enquiry, string, error) {
	return patchDocument(ctx, r.scope, EnquiriesCollection, match, func(e *models.Enquiry) {
		e.Status = status
	})
}

func (r *EnquiryRepository) syncLocalCopy(ctx context.Context, remoteID string, status models.EnquiryStatus) {
	if _, _, err := r.patchLocal(ctx, func(e *models.Enquiry) bool { return e.RemoteID == remoteID }, status); err != nil && !errors.Is(err, errRecordMissing) {
		r.scope.logger.WithFields(logrus.Fields{
			"remote_id": remoteID,
			"error":     err.Error(),
		}).Error("Failed to sync local copy of enquiry")
	}
	if err := dropPatch(ctx, r.scope, EnquiriesCollection, remoteID); err != nil {
		r.scope.logger.WithField("remote_id", remoteID).Error("Failed to drop superseded status patch")
	}
}

func (r *EnquiryRepository) queue(ctx context.Context, enquiryKey, remoteID string, status models.EnquiryStatus) error {
	return queuePatch(ctx, r.scope, ownerOf(EnquiriesCollection, enquiryKey), StatusPatch{
		Collection: EnquiriesCollection,
		ID:         remoteID,
		Status:     string(status),
		QueuedAt:   time.Now().UTC(),
	})
}

// PushLocal sends local-only enquiries to the remote service
func (r *EnquiryRepository) PushLocal(ctx context.Context) (PushResult, error) {
	var result PushResult

	keys, err := r.scope.keys(ctx, EnquiriesCollection)
	if err != nil {
		return result, fmt.Errorf("failed to list enquiry namespaces: %w", err)
	}

	for k, key := range keys {
		raw, err := r.scope.cache.Load(ctx, key)
		if err != nil {
			return result, fmt.Errorf("failed to load %s: %w", key, err)
		}
		enquiries := decodeDocument[models.Enquiry](r.scope.logger, key, raw)
		owner := localScope{cache: r.scope.cache, owner: ownerOf(EnquiriesCollection, key), logger: r.scope.logger}

		for i, e := range enquiries {
			if !models.IsLocalID(e.ID) || e.RemoteID != "" {
				continue
			}

			created, err := r.remote.CreateEnquiry(ctx, tourapi.CreateEnquiryPayload{
				Name:          e.Name,
				Email:         e.Email,
				Phone:         e.Phone,
				Destination:   e.Destination,
				Message:       e.Message,
				Owner:         firstNonEmpty(e.Owner, owner.owner),
				CorrelationID: e.CorrelationID,
			})
			if err != nil {
				result.Pending += countUnpushedEnquiries(enquiries[i:])
				for _, rest := range keys[k+1:] {
					result.Pending += countUnpushedEnquiries(loadScope[models.Enquiry](ctx, localScope{cache: r.scope.cache, owner: ownerOf(EnquiriesCollection, rest), logger: r.scope.logger}, EnquiriesCollection))
				}
				return result, err
			}

			localID := e.ID
			if _, _, err := patchDocument(ctx, owner, EnquiriesCollection,
				func(x *models.Enquiry) bool { return x.ID == localID },
				func(x *models.Enquiry) { x.RemoteID = created.ID },
			); err != nil {
				return result, fmt.Errorf("failed to remember remote id for %s: %w", localID, err)
			}
			result.Pushed++

			if e.Status != models.EnquiryStatusNew {
				if _, err := r.remote.UpdateEnquiryStatus(ctx, created.ID, e.Status); err != nil {
					if qerr := r.queue(ctx, key, created.ID, e.Status); qerr != nil {
						return result, qerr
					}
				}
			}
		}
	}
	return result, nil
}

func countUnpushedEnquiries(enquiries []models.Enquiry) int {
	n := 0
	for _, e := range enquiries {
		if models.IsLocalID(e.ID) && e.RemoteID == "" {
			n++
		}
	}
	return n
}
