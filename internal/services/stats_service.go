package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/models"
)

const (
	recentBookingsLimit = 5
	popularToursLimit   = 5
	revenueMonths       = 6
)

// statusOrder fixes the order of the per-status breakdown
var statusOrder = []models.BookingStatus{
	models.BookingStatusPending,
	models.BookingStatusConfirmed,
	models.BookingStatusCancelled,
}

// StatsService builds the operator dashboard
type StatsService struct {
	catalog   *CatalogService
	bookings  BookingStoreFactory
	enquiries EnquiryStoreFactory
	logger    *logrus.Logger
	now       func() time.Time
}

// NewStatsService creates a new StatsService
func NewStatsService(catalog *CatalogService, bookings BookingStoreFactory, enquiries EnquiryStoreFactory, logger *logrus.Logger) *StatsService {
	return &StatsService{
		catalog:   catalog,
		bookings:  bookings,
		enquiries: enquiries,
		logger:    logger,
		now:       time.Now,
	}
}

// Dashboard summarises the bookings and enquiries visible to owner.
// Revenue counts confirmed bookings only.
func (s *StatsService) Dashboard(ctx context.Context, owner string) (*models.DashboardStats, error) {
	totalTours, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tours: %w", err)
	}

	bookings, err := s.bookings(owner).List(ctx, models.BookingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	enquiries, err := s.enquiries(owner).List(ctx, models.EnquiryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %w", err)
	}

	stats := &models.DashboardStats{
		TotalTours:     totalTours,
		TotalBookings:  len(bookings),
		TotalEnquiries: len(enquiries),
		CatalogOrigin:  s.catalog.Origin(ctx),
	}

	byStatus := make(map[models.BookingStatus]*models.StatusStats, len(statusOrder))
	for _, status := range statusOrder {
		byStatus[status] = &models.StatusStats{Status: status}
	}
	perTour := make(map[string]int)

	for _, b := range bookings {
		if entry, ok := byStatus[b.Status]; ok {
			entry.Count++
			entry.TotalRevenue += b.TotalPrice
		}
		switch b.Status {
		case models.BookingStatusPending:
			stats.PendingBookings++
		case models.BookingStatusConfirmed:
			stats.TotalRevenue += b.TotalPrice
		}
		perTour[b.TourID]++
	}

	for _, status := range statusOrder {
		stats.ByStatus = append(stats.ByStatus, *byStatus[status])
	}

	for _, e := range enquiries {
		if e.Status == models.EnquiryStatusNew {
			stats.NewEnquiries++
		}
	}

	stats.PopularTours = s.popularTours(ctx, perTour)

	// List is already newest first
	recent := bookings
	if len(recent) > recentBookingsLimit {
		recent = recent[:recentBookingsLimit]
	}
	stats.RecentBookings = append([]models.Booking{}, recent...)
	stats.MonthlyRevenue = MonthlyRevenue(bookings, s.now())

	return stats, nil
}

// Tours returns the catalog summary
func (s *StatsService) Tours(ctx context.Context) (*models.TourStats, error) {
	stats, err := s.catalog.TourStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise tours: %w", err)
	}
	return stats, nil
}

// MonthlyRevenue groups confirmed bookings created in the six months before
// now by calendar month, oldest first
func MonthlyRevenue(bookings []models.Booking, now time.Time) []models.MonthlyRevenue {
	since := now.AddDate(0, -revenueMonths, 0)

	type month struct{ year, month int }
	totals := make(map[month]*models.MonthlyRevenue)
	for _, b := range bookings {
		if b.Status != models.BookingStatusConfirmed || b.CreatedAt.Before(since) {
			continue
		}
		created := b.CreatedAt.UTC()
		key := month{created.Year(), int(created.Month())}
		entry, ok := totals[key]
		if !ok {
			entry = &models.MonthlyRevenue{Year: key.year, Month: key.month}
			totals[key] = entry
		}
		entry.Revenue += b.TotalPrice
		entry.Count++
	}

	monthly := make([]models.MonthlyRevenue, 0, len(totals))
	for _, entry := range totals {
		monthly = append(monthly, *entry)
	}
	sort.Slice(monthly, func(i, j int) bool {
		if monthly[i].Year != monthly[j].Year {
			return monthly[i].Year < monthly[j].Year
		}
		return monthly[i].Month < monthly[j].Month
	})
	return monthly
}

func (s *StatsService) popularTours(ctx context.Context, perTour map[string]int) []models.TourPopularity {
	popular := make([]models.TourPopularity, 0, len(perTour))
	for tourID, count := range perTour {
		entry := models.TourPopularity{TourID: tourID, Count: count}
		if tour, err := s.catalog.GetTour(ctx, tourID); err == nil {
			entry.Name = tour.Name
		}
		popular = append(popular, entry)
	}

	sort.Slice(popular, func(i, j int) bool {
		if popular[i].Count != popular[j].Count {
			return popular[i].Count > popular[j].Count
		}
		return popular[i].TourID < popular[j].TourID
	})
	if len(popular) > popularToursLimit {
		popular = popular[:popularToursLimit]
	}
	return popular
}
