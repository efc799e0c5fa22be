package market

import (
	"fmt"
	"time"

	"github.com/agrimind/agrimind/internal/apperr"
)

// Market errors.
var (
	ErrProviderUnavailable = fmt.Errorf("market provider unavailable: %w", apperr.ErrUpstreamUnavailable)
	ErrEmptyCommodity      = fmt.Errorf("commodity is required: %w", apperr.ErrInvalidInput)
)

// RegionFilters progressively narrow a price query. All fields are optional.
type RegionFilters struct {
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Market   string `json:"market,omitempty"`
}

// Record is one mandi price observation. Price fields are nil when the
// upstream value was missing or unparseable.
type Record struct {
	Commodity   string
	State       string
	District    string
	Market      string
	ArrivalDate time.Time
	ModalPrice  *float64 // INR per quintal
	MinPrice    *float64
	MaxPrice    *float64
}

// Features summarise recent prices for one commodity. Every field is nil
// when no usable records were found.
type Features struct {
	PriceLatest *float64 `json:"price_latest"`
	PriceMed30  *float64 `json:"price_med30"`
	PriceTrend7 *float64 `json:"price_trend7"`
	PriceZ30    *float64 `json:"price_z30"`

	// Observations is the number of records the features were derived from.
	Observations int `json:"observations"`
}

// Absent reports whether no market data backed these features.
func (f Features) Absent() bool {
	return f.PriceLatest == nil && f.PriceMed30 == nil && f.PriceTrend7 == nil && f.PriceZ30 == nil
}

// PriceUsed returns the latest price, falling back to the 30-observation
// median, then 0.
func (f Features) PriceUsed() float64 {
	switch {
	case f.PriceLatest != nil:
		return *f.PriceLatest
	case f.PriceMed30 != nil:
		return *f.PriceMed30
	default:
		return 0
	}
}
