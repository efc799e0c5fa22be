package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/telemetry"
)

// Provider fetches daily forecasts.
type Provider interface {
	// GetDailyForecast fetches horizonDays of daily forecast for a location.
	GetDailyForecast(ctx context.Context, lat, lon float64, horizonDays int) (*DailyForecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// Default, when non-nil, is returned if the provider fails.
	// Leave nil to surface provider failures to the caller.
	Default *Features

	// Metrics is optional.
	Metrics *telemetry.ProviderMetrics
}

// Service turns forecasts into request-scoped weather features.
// Nothing is cached between calls.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	fallback *Features
	metrics  *telemetry.ProviderMetrics
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	var fallback *Features
	if cfg.Default != nil {
		f := *cfg.Default
		f.Defaulted = true
		fallback = &f
	}
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		fallback: fallback,
		metrics:  cfg.Metrics,
	}
}

// GetFeatures fetches the forecast for (lat, lon) over horizonDays and reduces it.
func (s *Service) GetFeatures(ctx context.Context, lat, lon float64, horizonDays int) (*Features, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		return nil, ErrInvalidHorizon
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("horizon_days", horizonDays).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	started := time.Now()
	forecast, err := s.provider.GetDailyForecast(ctx, lat, lon, horizonDays)
	var features *Features
	if err == nil {
		features, err = Reduce(forecast)
	}
	s.metrics.Record(ctx, s.provider.Name(), "daily_forecast", started, err)

	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch forecast")

		if s.fallback != nil {
			s.logger.Warn().Msg("using configured default weather")
			f := *s.fallback
			return &f, nil
		}
		if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrMalformedForecast) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return features, nil
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
