package models

import (
	"encoding/json"
	"sort"
)

// AddOn is a single priced option of the add-on catalog
type AddOn struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
	// PerGuest options are multiplied by the guest count
	PerGuest bool `json:"perGuest"`
}

// Room types (per guest)
var RoomTypes = map[string]AddOn{
	"standard": {ID: "standard", Price: 0, PerGuest: true},
	"deluxe":   {ID: "deluxe", Price: 50, PerGuest: true},
	"suite":    {ID: "suite", Price: 120, PerGuest: true},
	"villa":    {ID: "villa", Price: 250, PerGuest: true},
}

// Meal plans (per guest)
var MealPlans = map[string]AddOn{
	"breakfast":    {ID: "breakfast", Price: 0, PerGuest: true},
	"halfBoard":    {ID: "halfBoard", Price: 30, PerGuest: true},
	"fullBoard":    {ID: "fullBoard", Price: 55, PerGuest: true},
	"allInclusive": {ID: "allInclusive", Price: 85, PerGuest: true},
}

// Transport options (flat)
var TransportOptions = map[string]AddOn{
	"shared":  {ID: "shared", Price: 0},
	"private": {ID: "private", Price: 80},
	"luxury":  {ID: "luxury", Price: 150},
}

// Extras (flat, independently toggled)
var Extras = map[string]AddOn{
	"insurance":       {ID: "insurance", Price: 25},
	"photography":     {ID: "photography", Price: 75},
	"privateGuide":    {ID: "privateGuide", Price: 60},
	"airportTransfer": {ID: "airportTransfer", Price: 40},
	"spaPackage":      {ID: "spaPackage", Price: 90},
}

// Activities (per guest, independently toggled)
var Activities = map[string]AddOn{
	"snorkeling": {ID: "snorkeling", Price: 35, PerGuest: true},
	"hiking":     {ID: "hiking", Price: 40, PerGuest: true},
	"cooking":    {ID: "cooking", Price: 45, PerGuest: true},
	"cultural":   {ID: "cultural", Price: 30, PerGuest: true},
	"sunset":     {ID: "sunset", Price: 55, PerGuest: true},
	"wildlife":   {ID: "wildlife", Price: 70, PerGuest: true},
}

// Customizations is the add-on selection recorded on a booking
type Customizations struct {
	RoomType   string          `json:"roomType,omitempty"`
	MealPlan   string          `json:"mealPlan,omitempty"`
	Transport  string          `json:"transport,omitempty"`
	Extras     map[string]bool `json:"extras,omitempty"`
	Activities []string        `json:"adventureActivities,omitempty"`
}

// UnmarshalJSON accepts extras either nested under "extras" or as top-level
// boolean toggles ({"insurance": true}), which is how the booking form sends them.
func (c *Customizations) UnmarshalJSON(data []byte) error {
	type plain Customizations
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for id := range Extras {
		msg, ok := raw[id]
		if !ok {
			continue
		}
		var on bool
		if err := json.Unmarshal(msg, &on); err != nil {
			continue
		}
		if p.Extras == nil {
			p.Extras = make(map[string]bool)
		}
		if _, set := p.Extras[id]; !set {
			p.Extras[id] = on
		}
	}

	*c = Customizations(p)
	return nil
}

// SelectedExtras returns the toggled extras in a stable order
func (c Customizations) SelectedExtras() []string {
	selected := make([]string, 0, len(c.Extras))
	for id, on := range c.Extras {
		if on {
			selected = append(selected, id)
		}
	}
	sort.Strings(selected)
	return selected
}

// AddOnCatalog groups every option list, used by the quote endpoint
type AddOnCatalog struct {
	RoomTypes  map[string]AddOn `json:"roomTypes"`
	MealPlans  map[string]AddOn `json:"mealPlans"`
	Transport  map[string]AddOn `json:"transport"`
	Extras     map[string]AddOn `json:"extras"`
	Activities map[string]AddOn `json:"activities"`
}

// DefaultAddOnCatalog returns the catalog the price calculator uses
func DefaultAddOnCatalog() AddOnCatalog {
	return AddOnCatalog{
		RoomTypes:  RoomTypes,
		MealPlans:  MealPlans,
		Transport:  TransportOptions,
		Extras:     Extras,
		Activities: Activities,
	}
}
