package repository

import (
	"sort"
	"strings"

	"github.com/tourexplorer/booking-engine/internal/models"
)

// Resolve merges the remote and local booking views into one list.
//
// Remote records win. A local record is dropped when its id, its remembered
// remote id or its correlation id matches a remote record, so a booking
// created offline and later reconciled appears once. Queued status patches
// are overlaid on the remote records they target. The result is ordered
// newest first.
func Resolve(remote, local []models.Booking, patches []StatusPatch) []models.Booking {
	overlay := patchIndex(patches, BookingsCollection)

	ids := make(map[string]struct{}, len(remote))
	correlations := make(map[string]struct{}, len(remote))
	merged := make([]models.Booking, 0, len(remote)+len(local))

	for _, b := range remote {
		if _, dup := ids[b.ID]; dup {
			continue
		}
		ids[b.ID] = struct{}{}
		if b.CorrelationID != "" {
			correlations[b.CorrelationID] = struct{}{}
		}
		if status, ok := overlay[b.ID]; ok {
			b.Status = models.BookingStatus(status)
		}
		merged = append(merged, b)
	}

	for _, b := range local {
		if seen(ids, b.ID) || seen(ids, b.RemoteID) || seen(correlations, b.CorrelationID) {
			continue
		}
		ids[b.ID] = struct{}{}
		merged = append(merged, b)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// ResolveEnquiries applies the booking merge policy to enquiries
func ResolveEnquiries(remote, local []models.Enquiry, patches []StatusPatch) []models.Enquiry {
	overlay := patchIndex(patches, EnquiriesCollection)

	ids := make(map[string]struct{}, len(remote))
	correlations := make(map[string]struct{}, len(remote))
	merged := make([]models.Enquiry, 0, len(remote)+len(local))

	for _, e := range remote {
		if _, dup := ids[e.ID]; dup {
			continue
		}
		ids[e.ID] = struct{}{}
		if e.CorrelationID != "" {
			correlations[e.CorrelationID] = struct{}{}
		}
		if status, ok := overlay[e.ID]; ok {
			e.Status = models.EnquiryStatus(status)
		}
		merged = append(merged, e)
	}

	for _, e := range local {
		if seen(ids, e.ID) || seen(ids, e.RemoteID) || seen(correlations, e.CorrelationID) {
			continue
		}
		ids[e.ID] = struct{}{}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// OwnedBookings narrows a merged view to what one owner may see. The remote
// list is shared, so remote records stay only when they were made under the
// owner's account or are the reconciled copy of one of the owner's local
// records. Records without an owner fall back to the contact email.
func OwnedBookings(merged, local []models.Booking, owner string) []models.Booking {
	refs := make(map[string]struct{}, len(local)*2)
	for _, b := range local {
		if b.RemoteID != "" {
			refs[b.RemoteID] = struct{}{}
		}
		if b.CorrelationID != "" {
			refs[b.CorrelationID] = struct{}{}
		}
	}

	owned := make([]models.Booking, 0, len(merged))
	for _, b := range merged {
		if models.IsLocalID(b.ID) || ownedBy(b.Owner, b.Email, owner) || seen(refs, b.ID) || seen(refs, b.CorrelationID) {
			owned = append(owned, b)
		}
	}
	return owned
}

// OwnedEnquiries is OwnedBookings for enquiries
func OwnedEnquiries(merged, local []models.Enquiry, owner string) []models.Enquiry {
	refs := make(map[string]struct{}, len(local)*2)
	for _, e := range local {
		if e.RemoteID != "" {
			refs[e.RemoteID] = struct{}{}
		}
		if e.CorrelationID != "" {
			refs[e.CorrelationID] = struct{}{}
		}
	}

	owned := make([]models.Enquiry, 0, len(merged))
	for _, e := range merged {
		if models.IsLocalID(e.ID) || ownedBy(e.Owner, e.Email, owner) || seen(refs, e.ID) || seen(refs, e.CorrelationID) {
			owned = append(owned, e)
		}
	}
	return owned
}

func ownedBy(recordOwner, email, owner string) bool {
	if recordOwner != "" {
		return strings.EqualFold(recordOwner, owner)
	}
	return strings.EqualFold(email, owner)
}

func seen(index map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := index[key]
	return ok
}

// patchIndex maps remote id to the latest queued status of a collection
func patchIndex(patches []StatusPatch, collection string) map[string]string {
	index := make(map[string]string)
	latest := make(map[string]StatusPatch)
	for _, p := range patches {
		if p.Collection != collection {
			continue
		}
		if prev, ok := latest[p.ID]; ok && prev.QueuedAt.After(p.QueuedAt) {
			continue
		}
		latest[p.ID] = p
		index[p.ID] = p.Status
	}
	return index
}
