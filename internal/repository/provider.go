package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/database"
)

// Provider hands out repositories bound to an owner namespace
type Provider struct {
	remote Remote
	cache  database.CacheStore
	logger *logrus.Logger
}

// NewProvider creates a new Provider
func NewProvider(remote Remote, cache database.CacheStore, logger *logrus.Logger) *Provider {
	return &Provider{remote: remote, cache: cache, logger: logger}
}

// Bookings returns the booking repository of owner
func (p *Provider) Bookings(owner string) *BookingRepository {
	return NewBookingRepository(p.remote, p.cache, owner, p.logger)
}

// Enquiries returns the enquiry repository of owner
func (p *Provider) Enquiries(owner string) *EnquiryRepository {
	return NewEnquiryRepository(p.remote, p.cache, owner, p.logger)
}

// Patches returns the deferred status patches of owner
func (p *Provider) Patches(owner string) *PatchQueue {
	return NewPatchQueue(p.remote, p.cache, owner, p.logger)
}

// Owners lists every identity holding local records or queued patches
func (p *Provider) Owners(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	for _, collection := range []string{BookingsCollection, EnquiriesCollection, PatchesCollection} {
		keys, err := p.cache.Keys(ctx, collection+"_")
		if err != nil {
			return nil, fmt.Errorf("failed to list %s namespaces: %w", collection, err)
		}
		for _, key := range keys {
			if owner, ok := database.OwnerFromKey(collection, key); ok {
				set[owner] = struct{}{}
			}
		}
	}

	owners := make([]string, 0, len(set))
	for owner := range set {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}
