package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/snapshot"
	"github.com/agrimind/agrimind/internal/weather"
)

// ErrNotConfigured marks targets skipped because the job was built without
// a weather source or repository.
var ErrNotConfigured = errors.New("refresh job has no weather source or repository")

// WeatherSource supplies weather features for a region.
type WeatherSource interface {
	GetFeatures(ctx context.Context, lat, lon float64, horizonDays int) (*weather.Features, error)
}

// MarketSource supplies market features for a commodity.
type MarketSource interface {
	GetFeatures(ctx context.Context, commodity string, filters market.RegionFilters, windowDays int) (market.Features, error)
}

// RefreshJob snapshots market and weather features for every catalog crop
// in every configured region.
type RefreshJob struct {
	config      RefreshConfig
	logger      zerolog.Logger
	weather     WeatherSource
	market      MarketSource
	crops       []string
	commodities market.CommodityMap
	repo        snapshot.Repository
	now         func() time.Time

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRefreshes    int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	SnapshotsSaved    int64
	WeatherFailures   int64
	MarketFailures    int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Logger zerolog.Logger

	Weather WeatherSource
	Market  MarketSource

	// Crops are the catalog labels snapshotted per region.
	Crops       []string
	Commodities market.CommodityMap

	Repository snapshot.Repository

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	commodities := cfg.Commodities
	if commodities == nil {
		commodities = market.CommodityMap{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &RefreshJob{
		config:      cfg.Config.withDefaults(),
		logger:      cfg.Logger,
		weather:     cfg.Weather,
		market:      cfg.Market,
		crops:       cfg.Crops,
		commodities: commodities,
		repo:        cfg.Repository,
		now:         now,
		metrics:     &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	Snapshots    int
	Errors       []RefreshError
}

// RefreshError records one failure during a refresh.
type RefreshError struct {
	Provider string
	Target   string
	Crop     string
	Error    string
}

// Run refreshes every configured target.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	targets := j.config.Targets
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalTargets: len(targets),
	}

	j.logger.Info().
		Int("targets", len(targets)).
		Int("crops", len(j.crops)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting snapshot refresh job")

	targetsChan := make(chan RefreshTarget, len(targets))
	resultsChan := make(chan targetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, targetsChan, resultsChan)
		}()
	}

	for _, t := range targets {
		targetsChan <- t
	}
	close(targetsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Snapshots += tr.saved
		result.Errors = append(result.Errors, tr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("snapshots", result.Snapshots).
		Msg("snapshot refresh job completed")

	return result
}

type targetResult struct {
	success bool
	saved   int
	errors  []RefreshError
}

func (j *RefreshJob) refreshWorker(ctx context.Context, targets <-chan RefreshTarget, results chan<- targetResult) {
	for target := range targets {
		select {
		case <-ctx.Done():
			results <- targetResult{errors: []RefreshError{{
				Provider: "worker",
				Target:   target.Name,
				Error:    ctx.Err().Error(),
			}}}
		default:
			results <- j.refreshTarget(ctx, target)
		}
	}
}

// refreshTarget fetches weather once, then market features per crop. A
// market failure still produces a snapshot with absent prices.
func (j *RefreshJob) refreshTarget(ctx context.Context, target RefreshTarget) targetResult {
	result := targetResult{success: true}

	targetCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.weather == nil || j.repo == nil {
		j.logger.Error().Err(ErrNotConfigured).Str("target", target.Name).Msg("target refresh skipped")
		result.success = false
		result.errors = append(result.errors, RefreshError{
			Provider: "worker",
			Target:   target.Name,
			Error:    ErrNotConfigured.Error(),
		})
		return result
	}

	w, err := j.weather.GetFeatures(targetCtx, target.Lat, target.Lon, j.config.HorizonDays)
	if err != nil {
		atomic.AddInt64(&j.metrics.WeatherFailures, 1)
		j.logger.Error().Err(err).Str("target", target.Name).Msg("weather refresh failed")
		result.success = false
		result.errors = append(result.errors, RefreshError{
			Provider: "weather",
			Target:   target.Name,
			Error:    err.Error(),
		})
		return result
	}

	fetchedAt := j.now().UTC()
	for _, crop := range j.crops {
		commodity := j.commodities.Commodity(crop)

		var m market.Features
		if j.market != nil {
			m, err = j.market.GetFeatures(targetCtx, commodity, target.Filters, j.config.WindowDays)
			if err != nil {
				atomic.AddInt64(&j.metrics.MarketFailures, 1)
				j.logger.Warn().Err(err).
					Str("target", target.Name).
					Str("commodity", commodity).
					Msg("market refresh failed, saving snapshot without prices")
				result.errors = append(result.errors, RefreshError{
					Provider: "market",
					Target:   target.Name,
					Crop:     crop,
					Error:    err.Error(),
				})
				m = market.Features{}
			}
		}

		snap := &snapshot.Snapshot{
			ID:          uuid.NewString(),
			Crop:        crop,
			Commodity:   commodity,
			Region:      target.Name,
			State:       target.Filters.State,
			District:    target.Filters.District,
			Market:      m,
			Weather:     *w,
			Explanation: snapshot.Explain(commodity, *w, m),
			FetchedAt:   fetchedAt,
		}
		if err := j.repo.Save(targetCtx, snap); err != nil {
			j.logger.Error().Err(err).
				Str("target", target.Name).
				Str("crop", crop).
				Msg("failed to save snapshot")
			result.success = false
			result.errors = append(result.errors, RefreshError{
				Provider: "repository",
				Target:   target.Name,
				Crop:     crop,
				Error:    err.Error(),
			})
			continue
		}
		result.saved++
	}

	return result
}

// CheckWeather fetches weather for the first target to verify upstream
// connectivity without writing snapshots.
func (j *RefreshJob) CheckWeather(ctx context.Context) error {
	if j.weather == nil || len(j.config.Targets) == 0 {
		return nil
	}
	t := j.config.Targets[0]

	checkCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.weather.GetFeatures(checkCtx, t.Lat, t.Lon, j.config.HorizonDays)
	return err
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.SnapshotsSaved += int64(result.Snapshots)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		SnapshotsSaved:      j.metrics.SnapshotsSaved,
		WeatherFailures:     atomic.LoadInt64(&j.metrics.WeatherFailures),
		MarketFailures:      atomic.LoadInt64(&j.metrics.MarketFailures),
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"snapshots_saved":       m.SnapshotsSaved,
		"weather_failures":      m.WeatherFailures,
		"market_failures":       m.MarketFailures,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
