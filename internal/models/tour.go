package models

// Tour represents a purchasable travel package
type Tour struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Location     string  `json:"location"`
	Description  string  `json:"description"`
	BasePrice    float64 `json:"price"`
	DurationDays int     `json:"durationDays"`
	MaxGroupSize int     `json:"maxGroupSize"`
	Rating       float64 `json:"rating"`
	Image        string  `json:"image,omitempty"`
	Featured     bool    `json:"featured"`
}

// TourSort is the ordering applied when listing tours
type TourSort string

const (
	TourSortDefault   TourSort = ""
	TourSortPriceLow  TourSort = "price-low"
	TourSortPriceHigh TourSort = "price-high"
	TourSortRating    TourSort = "rating"
)

// IsValid returns true for a known sort order, including the default
func (s TourSort) IsValid() bool {
	switch s {
	case TourSortDefault, TourSortPriceLow, TourSortPriceHigh, TourSortRating:
		return true
	}
	return false
}

// TourFilter narrows a tour listing
type TourFilter struct {
	Search   string   `form:"search"`
	MinPrice *float64 `form:"minPrice"`
	MaxPrice *float64 `form:"maxPrice"`
	Sort     TourSort `form:"sort"`
}

// Valid reports whether the tour satisfies the catalog constraints
func (t *Tour) Valid() bool {
	return t.ID != "" &&
		t.BasePrice > 0 &&
		t.DurationDays > 0 &&
		t.MaxGroupSize > 0 &&
		t.Rating >= 1.0 && t.Rating <= 5.0
}
