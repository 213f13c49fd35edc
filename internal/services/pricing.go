package services

import (
	"github.com/tourexplorer/booking-engine/internal/models"
)

// LineItem is one priced component of a quote
type LineItem struct {
	ID       string  `json:"id"`
	Unit     float64 `json:"unitPrice"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// PriceQuote itemises a booking total
type PriceQuote struct {
	TourID     string     `json:"tourId"`
	Guests     int        `json:"guests"`
	Base       LineItem   `json:"base"`
	Room       *LineItem  `json:"room,omitempty"`
	Meal       *LineItem  `json:"meal,omitempty"`
	Transport  *LineItem  `json:"transport,omitempty"`
	Extras     []LineItem `json:"extras"`
	Activities []LineItem `json:"activities"`
	Total      float64    `json:"total"`
}

// ComputeTotal prices a tour for a guest count and add-on selection.
// Unknown add-on ids contribute nothing. Capacity is not checked here.
func ComputeTotal(tour models.Tour, guests int, c models.Customizations) float64 {
	return PriceBreakdown(tour, guests, c).Total
}

// PriceBreakdown returns the itemised quote whose Total is the booking price
func PriceBreakdown(tour models.Tour, guests int, c models.Customizations) PriceQuote {
	q := PriceQuote{
		TourID:     tour.ID,
		Guests:     guests,
		Base:       lineItem(tour.ID, tour.BasePrice, guests),
		Extras:     []LineItem{},
		Activities: []LineItem{},
	}
	q.Total = q.Base.Amount

	if item, ok := addOnItem(models.RoomTypes, c.RoomType, guests); ok {
		q.Room = &item
		q.Total += item.Amount
	}
	if item, ok := addOnItem(models.MealPlans, c.MealPlan, guests); ok {
		q.Meal = &item
		q.Total += item.Amount
	}
	if item, ok := addOnItem(models.TransportOptions, c.Transport, guests); ok {
		q.Transport = &item
		q.Total += item.Amount
	}

	for _, id := range c.SelectedExtras() {
		if item, ok := addOnItem(models.Extras, id, guests); ok {
			q.Extras = append(q.Extras, item)
			q.Total += item.Amount
		}
	}

	for _, id := range c.Activities {
		if item, ok := addOnItem(models.Activities, id, guests); ok {
			q.Activities = append(q.Activities, item)
			q.Total += item.Amount
		}
	}

	return q
}

func addOnItem(options map[string]models.AddOn, id string, guests int) (LineItem, bool) {
	if id == "" {
		return LineItem{}, false
	}
	opt, ok := options[id]
	if !ok {
		return LineItem{}, false
	}
	qty := 1
	if opt.PerGuest {
		qty = guests
	}
	return lineItem(opt.ID, opt.Price, qty), true
}

func lineItem(id string, unit float64, qty int) LineItem {
	return LineItem{ID: id, Unit: unit, Quantity: qty, Amount: unit * float64(qty)}
}
