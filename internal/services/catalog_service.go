package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/catalog"
	"github.com/tourexplorer/booking-engine/internal/models"
)

// Catalog origins
const (
	CatalogOriginRemote = "remote"
	CatalogOriginSeed   = "seed"
)

// TourSource provides the remote tour catalog
type TourSource interface {
	ListTours(ctx context.Context) ([]models.Tour, error)
}

// CatalogService holds the tour catalog. It is loaded once per process and
// is read-only afterwards.
type CatalogService struct {
	source TourSource
	logger *logrus.Logger

	once   sync.Once
	tours  []models.Tour
	origin string
	err    error
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(source TourSource, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		source: source,
		logger: logger,
	}
}

func (s *CatalogService) load(ctx context.Context) error {
	s.once.Do(func() {
		if s.source != nil {
			remote, err := s.source.ListTours(ctx)
			if err == nil {
				valid := make([]models.Tour, 0, len(remote))
				for i := range remote {
					if remote[i].Valid() {
						valid = append(valid, remote[i])
					} else {
						s.logger.WithField("tour_id", remote[i].ID).Warn("Skipping invalid remote tour")
					}
				}
				if len(valid) > 0 {
					s.tours = valid
					s.origin = CatalogOriginRemote
					s.logger.WithField("count", len(valid)).Info("Tour catalog loaded from remote service")
					return
				}
				s.logger.Warn("Remote tour catalog is empty, using seed catalog")
			} else {
				s.logger.WithField("error", err.Error()).Warn("Remote tour catalog unavailable, using seed catalog")
			}
		}

		s.tours, s.err = catalog.SeedTours()
		s.origin = CatalogOriginSeed
	})
	return s.err
}

// Origin reports where the catalog was loaded from
func (s *CatalogService) Origin(ctx context.Context) string {
	if err := s.load(ctx); err != nil {
		return ""
	}
	return s.origin
}

// ListTours returns the tours matching filter
func (s *CatalogService) ListTours(ctx context.Context, filter models.TourFilter) ([]models.Tour, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.Tour, 0, len(s.tours))
	for _, tour := range s.tours {
		if search != "" &&
			!strings.Contains(strings.ToLower(tour.Name), search) &&
			!strings.Contains(strings.ToLower(tour.Location), search) {
			continue
		}
		if filter.MinPrice != nil && tour.BasePrice < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && tour.BasePrice > *filter.MaxPrice {
			continue
		}
		result = append(result, tour)
	}

	switch filter.Sort {
	case models.TourSortPriceLow:
		sort.SliceStable(result, func(i, j int) bool { return result[i].BasePrice < result[j].BasePrice })
	case models.TourSortPriceHigh:
		sort.SliceStable(result, func(i, j int) bool { return result[i].BasePrice > result[j].BasePrice })
	case models.TourSortRating:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Rating > result[j].Rating })
	}

	return result, nil
}

// GetTour returns a tour by id
func (s *CatalogService) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	for i := range s.tours {
		if s.tours[i].ID == id {
			tour := s.tours[i]
			return &tour, nil
		}
	}
	return nil, models.ErrNotFound
}

// TourStats averages price and rating over the catalog and counts tours per
// region, the part of the location after the first ", "
func (s *CatalogService) TourStats(ctx context.Context) (*models.TourStats, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	stats := &models.TourStats{TotalTours: len(s.tours), ToursByLocation: []models.LocationCount{}}
	if len(s.tours) == 0 {
		return stats, nil
	}

	perLocation := make(map[string]int)
	var price, rating float64
	for _, t := range s.tours {
		price += t.BasePrice
		rating += t.Rating
		perLocation[region(t.Location)]++
	}
	stats.AvgPrice = price / float64(len(s.tours))
	stats.AvgRating = rating / float64(len(s.tours))

	for location, count := range perLocation {
		stats.ToursByLocation = append(stats.ToursByLocation, models.LocationCount{Location: location, Count: count})
	}
	sort.Slice(stats.ToursByLocation, func(i, j int) bool {
		a, b := stats.ToursByLocation[i], stats.ToursByLocation[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Location < b.Location
	})
	if len(stats.ToursByLocation) > toursByLocationLimit {
		stats.ToursByLocation = stats.ToursByLocation[:toursByLocationLimit]
	}
	return stats, nil
}

const toursByLocationLimit = 10

func region(location string) string {
	parts := strings.SplitN(location, ", ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(location)
}

// Count returns the number of tours in the catalog
func (s *CatalogService) Count(ctx context.Context) (int, error) {
	if err := s.load(ctx); err != nil {
		return 0, err
	}
	return len(s.tours), nil
}
