// Package snapshot stores periodic per-region market and weather snapshots
// for the catalog crops.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/weather"
)

// Snapshot is one crop's market and weather picture for a region.
type Snapshot struct {
	ID          string           `json:"id"`
	Crop        string           `json:"crop"`
	Commodity   string           `json:"commodity"`
	Region      string           `json:"region"`
	State       string           `json:"state,omitempty"`
	District    string           `json:"district,omitempty"`
	Market      market.Features  `json:"market"`
	Weather     weather.Features `json:"weather"`
	Explanation string           `json:"explanation"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// Repository persists snapshots.
type Repository interface {
	// Save stores a snapshot. The ID must be set.
	Save(ctx context.Context, s *Snapshot) error

	// Latest returns the newest snapshot per (crop, region), newest first,
	// at most limit items.
	Latest(ctx context.Context, limit int) ([]*Snapshot, error)
}

// DefaultLimit caps Latest when no limit is given.
const DefaultLimit = 100

// Explain renders the farmer-facing summary for a crop.
func Explain(crop string, w weather.Features, m market.Features) string {
	text := fmt.Sprintf(
		"%s is currently suitable because the temperature is around %.1f°C and rainfall is %.1f mm, which fits its ideal growing range.",
		crop, w.Temperature, w.Rainfall,
	)
	if m.Absent() {
		return text + " Market price data is currently unavailable."
	}
	return text + fmt.Sprintf(
		" The market price is approximately ₹%.0f per quintal, indicating good profitability this season.",
		m.PriceUsed(),
	)
}
