package crop

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/model"
	"github.com/agrimind/agrimind/internal/provider/resilience"
	"github.com/agrimind/agrimind/internal/weather"
)

const tracerName = "github.com/agrimind/agrimind/internal/crop"

// Ranking errors.
var (
	ErrRankingDisabled = fmt.Errorf("crop ranking is disabled: %w", apperr.ErrModelUnavailable)
	ErrNoCandidates    = fmt.Errorf("suitability model returned no candidate crops: %w", apperr.ErrModelUnavailable)
	ErrInvalidSoil     = fmt.Errorf("invalid soil input: %w", apperr.ErrInvalidInput)
)

// Ranking states, logged as the ranker advances.
const (
	StateCollectingWeather = "collecting_weather"
	StateScoringCandidates = "scoring_candidates"
	StateRanked            = "ranked"
)

// WeatherSource supplies request-scoped weather features.
type WeatherSource interface {
	GetFeatures(ctx context.Context, lat, lon float64, horizonDays int) (*weather.Features, error)
}

// MarketSource supplies market features for one commodity.
type MarketSource interface {
	GetFeatures(ctx context.Context, commodity string, filters market.RegionFilters, windowDays int) (market.Features, error)
}

// SuitabilityModel predicts crop suitability from
// [N, P, K, temperature, humidity, ph, rainfall].
type SuitabilityModel interface {
	PredictCrop(ctx context.Context, features []float64) (*model.Prediction, error)
}

// FertilizerAdvisor suggests a fertilizer product.
type FertilizerAdvisor interface {
	Recommend(ctx context.Context, in model.FertilizerInput) (string, error)
}

// Soil is the per-request soil input. It is never persisted.
type Soil struct {
	N        float64
	P        float64
	K        float64
	PH       float64
	Moisture *float64
}

// Validate checks nutrient and pH ranges.
func (s Soil) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{{"N", s.N}, {"P", s.P}, {"K", s.K}} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 {
			return fmt.Errorf("%s must be a non-negative number: %w", v.name, ErrInvalidSoil)
		}
	}
	if math.IsNaN(s.PH) || s.PH < 0 || s.PH > 14 {
		return fmt.Errorf("ph must be within [0, 14]: %w", ErrInvalidSoil)
	}
	if s.Moisture != nil {
		if m := *s.Moisture; math.IsNaN(m) || m < 0 || m > 100 {
			return fmt.Errorf("moisture must be within [0, 100]: %w", ErrInvalidSoil)
		}
	}
	return nil
}

// Request is one ranking query.
type Request struct {
	Lat    float64
	Lon    float64
	Soil   Soil
	Region market.RegionFilters

	// SoilType feeds the companion fertilizer query. Default: Loamy
	SoilType string

	// TopK bounds the result length. Zero uses the ranker default.
	TopK int

	// Date is the planning (sowing) date. Zero means today.
	Date time.Time
}

// Candidate is one scored crop.
type Candidate struct {
	Label               string
	Commodity           string
	ModelProbability    float64
	Weather             weather.Features
	Market              market.Features
	Score               float64
	ProfitProxy         float64
	ExpectedHarvestDate *time.Time
}

// Result is an ordered ranking, best first.
type Result struct {
	Candidates []Candidate
	Weather    weather.Features
	Date       time.Time

	// Fertilizer is the companion suggestion for the best crop, empty when
	// the fertilizer model is disabled or failed.
	Fertilizer string

	// LocalCrops lists crops commonly grown in the requested district.
	LocalCrops []string
}

// Best returns the top candidate, or nil for an empty result.
func (r *Result) Best() *Candidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// RankerConfig holds configuration for the ranker.
type RankerConfig struct {
	Weather WeatherSource
	Market  MarketSource

	// Model is nil when the suitability model is unavailable; Rank then
	// fails with ErrRankingDisabled.
	Model SuitabilityModel

	// Fertilizer is optional.
	Fertilizer FertilizerAdvisor

	Scorer      *Scorer
	Catalog     *Catalog
	Commodities market.CommodityMap
	Logger      zerolog.Logger

	// HorizonDays is the forecast horizon (default: 7).
	HorizonDays int

	// WindowDays is the market lookback (default: 30).
	WindowDays int

	// DefaultTopK applies when a request has no top_k (default: 5).
	DefaultTopK int

	// Concurrency bounds parallel market fetches (default: 4).
	Concurrency int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Ranker orchestrates weather, model, market and scoring into a ranking.
type Ranker struct {
	weather     WeatherSource
	market      MarketSource
	model       SuitabilityModel
	fertilizer  FertilizerAdvisor
	scorer      *Scorer
	catalog     *Catalog
	commodities market.CommodityMap
	logger      zerolog.Logger
	tracer      trace.Tracer

	horizonDays int
	windowDays  int
	defaultTopK int
	concurrency int
	now         func() time.Time
}

// NewRanker creates a new ranker.
func NewRanker(cfg RankerConfig) *Ranker {
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 7
	}
	window := cfg.WindowDays
	if window <= 0 {
		window = 30
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = 5
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = NewScorer(ScorerConfig{Weights: DefaultWeights(), Yields: cfg.Catalog})
	}
	commodities := cfg.Commodities
	if commodities == nil {
		commodities = market.CommodityMap{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Ranker{
		weather:     cfg.Weather,
		market:      cfg.Market,
		model:       cfg.Model,
		fertilizer:  cfg.Fertilizer,
		scorer:      scorer,
		catalog:     cfg.Catalog,
		commodities: commodities,
		logger:      cfg.Logger,
		tracer:      otel.Tracer(tracerName),
		horizonDays: horizon,
		windowDays:  window,
		defaultTopK: topK,
		concurrency: concurrency,
		now:         now,
	}
}

// Enabled reports whether the suitability model is wired.
func (r *Ranker) Enabled() bool {
	return r.model != nil
}

// Rank scores every candidate crop and returns the top-k, best first.
func (r *Ranker) Rank(ctx context.Context, req Request) (*Result, error) {
	if r.model == nil {
		return nil, ErrRankingDisabled
	}
	if err := req.Soil.Validate(); err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}
	date := req.Date
	if date.IsZero() {
		now := r.now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	ctx, span := r.tracer.Start(ctx, "crop.Rank", trace.WithAttributes(
		attribute.Float64("location.lat", req.Lat),
		attribute.Float64("location.lon", req.Lon),
		attribute.Int("ranking.top_k", topK),
	))
	defer span.End()

	logger := r.logger.With().
		Float64("lat", req.Lat).
		Float64("lon", req.Lon).
		Logger()

	logger.Debug().Str("state", StateCollectingWeather).Msg("ranking state")
	w, err := r.weather.GetFeatures(ctx, req.Lat, req.Lon, r.horizonDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "weather unavailable")
		return nil, err
	}

	universe, err := r.predict(ctx, req.Soil, *w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "suitability model failed")
		return nil, err
	}

	logger.Debug().
		Str("state", StateScoringCandidates).
		Int("candidates", len(universe)).
		Msg("ranking state")
	candidates, err := r.scoreAll(ctx, universe, req.Region, *w, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return nil, err
	}

	SortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	result := &Result{
		Candidates: candidates,
		Weather:    *w,
		Date:       date,
	}
	if r.catalog != nil && req.Region.District != "" {
		result.LocalCrops = r.catalog.LocalCrops(req.Region.District)
	}
	result.Fertilizer = r.companionFertilizer(ctx, req, result)

	best := result.Best()
	span.SetAttributes(
		attribute.Int("ranking.candidates", len(universe)),
		attribute.String("ranking.best", best.Label),
	)
	logger.Debug().
		Str("state", StateRanked).
		Str("best", best.Label).
		Float64("score", best.Score).
		Msg("ranking state")

	return result, nil
}

type labelProbability struct {
	label       string
	probability float64
}

// predict returns the candidate universe. A label-only prediction scores
// that label with probability 1 and every catalog crop with 0.
func (r *Ranker) predict(ctx context.Context, soil Soil, w weather.Features) ([]labelProbability, error) {
	features := []float64{soil.N, soil.P, soil.K, w.Temperature, w.Humidity, soil.PH, w.Rainfall}
	pred, err := r.model.PredictCrop(ctx, features)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var universe []labelProbability
	add := func(label string, p float64) {
		key := normalize(label)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		universe = append(universe, labelProbability{label: strings.TrimSpace(label), probability: p})
	}

	if pred.HasProbabilities() {
		for i, label := range pred.Labels {
			add(label, pred.Probabilities[i])
		}
	} else {
		r.logger.Debug().
			Str("label", pred.Label).
			Msg("model returned a single label, degrading to one-hot probabilities")
		add(pred.Label, 1.0)
		if r.catalog != nil {
			for _, label := range r.catalog.Labels() {
				add(label, 0)
			}
		}
	}

	if len(universe) == 0 {
		return nil, ErrNoCandidates
	}
	return universe, nil
}

func (r *Ranker) scoreAll(ctx context.Context, universe []labelProbability, region market.RegionFilters, w weather.Features, date time.Time) ([]Candidate, error) {
	candidates := make([]Candidate, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, lp := range universe {
		g.Go(func() error {
			commodity := r.commodities.Commodity(lp.label)
			m, err := r.market.GetFeatures(gctx, commodity, region, r.windowDays)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.Warn().Err(err).
					Str("crop", lp.label).
					Str("commodity", commodity).
					Msg("market data unavailable, scoring without market terms")
				m = market.Features{}
			}
			candidates[i] = r.candidate(lp, commodity, m, w, date)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", resilience.Classify(err))
	}
	return candidates, nil
}

func (r *Ranker) candidate(lp labelProbability, commodity string, m market.Features, w weather.Features, date time.Time) Candidate {
	c := Candidate{
		Label:            lp.label,
		Commodity:        commodity,
		ModelProbability: lp.probability,
		Weather:          w,
		Market:           m,
		Score:            r.scorer.Score(lp.probability, m, w),
		ProfitProxy:      r.scorer.ProfitProxy(lp.label, m),
	}
	if r.catalog != nil {
		if meta, err := r.catalog.Lookup(lp.label); err == nil {
			harvest := date.AddDate(0, 0, meta.DurationDays)
			c.ExpectedHarvestDate = &harvest
		}
	}
	return c
}

func (r *Ranker) companionFertilizer(ctx context.Context, req Request, result *Result) string {
	best := result.Best()
	if r.fertilizer == nil || best == nil {
		return ""
	}

	soilType := strings.TrimSpace(req.SoilType)
	if soilType == "" {
		soilType = model.DefaultSoilType
	}
	moisture := model.DefaultMoisture
	if req.Soil.Moisture != nil {
		moisture = *req.Soil.Moisture
	}

	label, err := r.fertilizer.Recommend(ctx, model.FertilizerInput{
		Temperature: result.Weather.Temperature,
		Humidity:    result.Weather.Humidity,
		Moisture:    moisture,
		SoilType:    soilType,
		CropType:    best.Commodity,
		Nitrogen:    req.Soil.N,
		Phosphorus:  req.Soil.P,
		Potassium:   req.Soil.K,
	})
	if err != nil {
		r.logger.Warn().Err(err).
			Str("crop", best.Label).
			Msg("companion fertilizer suggestion failed")
		return ""
	}
	return label
}

// SortCandidates orders by score descending, then model probability
// descending, then label ascending.
func SortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return candidateLess(c[i], c[j])
	})
}

func candidateLess(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ModelProbability != b.ModelProbability {
		return a.ModelProbability > b.ModelProbability
	}
	return a.Label < b.Label
}
