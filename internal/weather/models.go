package weather

import (
	"fmt"
	"time"

	"github.com/agrimind/agrimind/internal/apperr"
)

// Weather errors.
var (
	ErrProviderUnavailable = fmt.Errorf("weather provider unavailable: %w", apperr.ErrUpstreamUnavailable)
	ErrMalformedForecast   = fmt.Errorf("malformed forecast: %w", apperr.ErrUpstreamUnavailable)
	ErrInvalidCoordinates  = fmt.Errorf("invalid coordinates: %w", apperr.ErrInvalidInput)
	ErrInvalidHorizon      = fmt.Errorf("horizon_days must be positive: %w", apperr.ErrInvalidInput)
)

// RainyDayThreshold is the daily precipitation (mm) at which a day counts as rainy.
const RainyDayThreshold = 1.0

// DailyForecast is a short-range daily forecast for one coordinate.
type DailyForecast struct {
	Lat       float64
	Lon       float64
	Days      []Day
	FetchedAt time.Time
}

// Day holds one forecast day. Nil fields were null upstream.
type Day struct {
	Date          time.Time
	Precipitation *float64 // mm
	TempMax       *float64 // Celsius
	TempMin       *float64 // Celsius
	Humidity      *float64 // percent, daily mean
}

// Features are the scalar aggregates fed to the suitability model and scorer.
type Features struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
	RainDays    int     `json:"rain_days"`

	// Defaulted is set when the configured default-weather policy was used.
	Defaulted bool `json:"defaulted,omitempty"`
}

// Reduce aggregates a forecast into Features.
// Temperature is the midpoint of the mean daily max and mean daily min,
// rainfall is the horizon total, and humidity is the mean of daily means.
func Reduce(f *DailyForecast) (*Features, error) {
	if f == nil || len(f.Days) == 0 {
		return nil, fmt.Errorf("no forecast days: %w", ErrMalformedForecast)
	}

	var (
		maxSum, minSum, humSum, rainSum float64
		maxN, minN, humN, rainN         int
		rainDays                        int
	)
	for _, d := range f.Days {
		if d.TempMax != nil {
			maxSum += *d.TempMax
			maxN++
		}
		if d.TempMin != nil {
			minSum += *d.TempMin
			minN++
		}
		if d.Humidity != nil {
			humSum += *d.Humidity
			humN++
		}
		if d.Precipitation != nil {
			rainSum += *d.Precipitation
			rainN++
			if *d.Precipitation >= RainyDayThreshold {
				rainDays++
			}
		}
	}

	switch {
	case maxN == 0:
		return nil, fmt.Errorf("no temperature_2m_max values: %w", ErrMalformedForecast)
	case minN == 0:
		return nil, fmt.Errorf("no temperature_2m_min values: %w", ErrMalformedForecast)
	case humN == 0:
		return nil, fmt.Errorf("no relative_humidity_2m_mean values: %w", ErrMalformedForecast)
	case rainN == 0:
		return nil, fmt.Errorf("no precipitation_sum values: %w", ErrMalformedForecast)
	}

	return &Features{
		Temperature: (maxSum/float64(maxN) + minSum/float64(minN)) / 2,
		Humidity:    humSum / float64(humN),
		Rainfall:    rainSum,
		RainDays:    rainDays,
	}, nil
}
