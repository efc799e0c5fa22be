package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/telemetry"
)

// Provider fetches raw price records.
type Provider interface {
	// GetPrices returns records for commodity arriving within [from, to].
	GetPrices(ctx context.Context, commodity string, filters RegionFilters, from, to time.Time) ([]Record, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the market service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CushionDays widens the query window so the trailing window stays full
	// across weekends and mandi holidays. Default: 3
	CushionDays int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	Metrics *telemetry.ProviderMetrics
}

// Service turns price records into per-commodity market features.
type Service struct {
	provider    Provider
	logger      zerolog.Logger
	cushionDays int
	now         func() time.Time
	metrics     *telemetry.ProviderMetrics
}

// NewService creates a new market service.
func NewService(cfg ServiceConfig) *Service {
	cushion := cfg.CushionDays
	if cushion <= 0 {
		cushion = 3
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider:    cfg.Provider,
		logger:      cfg.Logger,
		cushionDays: cushion,
		now:         now,
		metrics:     cfg.Metrics,
	}
}

// GetFeatures fetches windowDays of prices for commodity and derives features.
// Zero usable records is not an error: the returned features are all absent.
func (s *Service) GetFeatures(ctx context.Context, commodity string, filters RegionFilters, windowDays int) (Features, error) {
	commodity = strings.TrimSpace(commodity)
	if commodity == "" {
		return Features{}, ErrEmptyCommodity
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	to := s.now()
	from := to.AddDate(0, 0, -(windowDays + s.cushionDays))

	started := time.Now()
	records, err := s.provider.GetPrices(ctx, commodity, filters, from, to)
	s.metrics.Record(ctx, s.provider.Name(), "prices", started, err)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return Features{}, err
		}
		return Features{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	usable := Clean(records)
	if dropped := len(records) - len(usable); dropped > 0 {
		s.logger.Debug().
			Str("commodity", commodity).
			Int("dropped", dropped).
			Int("kept", len(usable)).
			Msg("dropped unparseable market records")
	}

	return Engineer(usable), nil
}

// Clean drops records without a modal price or arrival date and orders the
// rest by arrival date ascending. Same-day records keep their upstream order.
func Clean(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ModalPrice == nil || r.ArrivalDate.IsZero() {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ArrivalDate.Before(out[j].ArrivalDate)
	})
	return out
}
