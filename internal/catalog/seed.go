// Package catalog carries the tour catalog shipped with the binary. It is
// served whenever the remote service cannot provide one.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/tourexplorer/booking-engine/internal/models"
)

//go:embed tours.json
var seedTours []byte

// SeedTours parses the embedded catalog and rejects invalid entries
func SeedTours() ([]models.Tour, error) {
	var tours []models.Tour
	if err := json.Unmarshal(seedTours, &tours); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	for i := range tours {
		if !tours[i].Valid() {
			return nil, fmt.Errorf("seed tour %q is invalid", tours[i].ID)
		}
	}
	return tours, nil
}
