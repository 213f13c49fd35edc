package models

// StatusStats aggregates bookings sharing a status
type StatusStats struct {
	Status       BookingStatus `json:"status"`
	Count        int           `json:"count"`
	TotalRevenue float64       `json:"totalRevenue"`
}

// TourPopularity counts bookings per tour
type TourPopularity struct {
	TourID string `json:"tourId"`
	Name   string `json:"name,omitempty"`
	Count  int    `json:"count"`
}

// MonthlyRevenue is the confirmed revenue of one calendar month
type MonthlyRevenue struct {
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

// LocationCount counts tours in one region
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// TourStats summarises the catalog
type TourStats struct {
	TotalTours      int             `json:"totalTours"`
	AvgPrice        float64         `json:"avgPrice"`
	AvgRating       float64         `json:"avgRating"`
	ToursByLocation []LocationCount `json:"toursByLocation"`
}

// DashboardStats is the operator dashboard summary
type DashboardStats struct {
	TotalTours      int              `json:"totalTours"`
	TotalBookings   int              `json:"totalBookings"`
	PendingBookings int              `json:"pendingBookings"`
	TotalRevenue    float64          `json:"totalRevenue"`
	TotalEnquiries  int              `json:"totalEnquiries"`
	NewEnquiries    int              `json:"newEnquiries"`
	ByStatus        []StatusStats    `json:"byStatus"`
	PopularTours    []TourPopularity `json:"popularTours"`
	RecentBookings  []Booking        `json:"recentBookings"`
	MonthlyRevenue  []MonthlyRevenue `json:"monthlyRevenue"`
	CatalogOrigin   string           `json:"catalogOrigin,omitempty"`
}
