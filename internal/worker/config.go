// Package worker provides background snapshot refresh for AgriMind.
package worker

import (
	"time"

	"github.com/agrimind/agrimind/internal/config"
	"github.com/agrimind/agrimind/internal/market"
)

// RefreshTarget is one farming region to snapshot.
type RefreshTarget struct {
	// Name is the human-readable region name, stored on each snapshot.
	Name string

	Lat float64
	Lon float64

	// Filters narrow the market query for this region.
	Filters market.RegionFilters
}

// RefreshConfig holds configuration for the snapshot refresh job.
type RefreshConfig struct {
	// Targets are the regions to refresh.
	// If empty, uses DefaultRefreshConfig targets.
	Targets []RefreshTarget

	// Concurrency is the number of regions refreshed at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the refresh of one region.
	// Default: 2 minutes
	Timeout time.Duration

	// HorizonDays is the forecast horizon. Default: 7
	HorizonDays int

	// WindowDays is the market lookback. Default: 30
	WindowDays int
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:     TargetsFromConfig(config.DefaultTargets()),
		Concurrency: 3,
		Timeout:     2 * time.Minute,
		HorizonDays: 7,
		WindowDays:  30,
	}
}

// TargetsFromConfig converts configured regions into refresh targets.
func TargetsFromConfig(regions []config.RegionTarget) []RefreshTarget {
	out := make([]RefreshTarget, 0, len(regions))
	for _, r := range regions {
		out = append(out, RefreshTarget{
			Name: r.Name,
			Lat:  r.Lat,
			Lon:  r.Lon,
			Filters: market.RegionFilters{
				State:    r.State,
				District: r.District,
				Market:   r.Market,
			},
		})
	}
	return out
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if len(c.Targets) == 0 {
		c.Targets = def.Targets
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.WindowDays <= 0 {
		c.WindowDays = def.WindowDays
	}
	return c
}
