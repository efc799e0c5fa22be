package crop

import (
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/weather"
)

// Weights are the coefficients of the score. A negative Rain weight
// penalises heavy forecast rainfall.
type Weights struct {
	Prob  float64
	Trend float64
	Z     float64
	Rain  float64
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{Prob: 0.5, Trend: 0.3, Z: 0.1, Rain: -0.1}
}

// Scoring defaults.
const (
	DefaultFertilizerCostPerArea = 2500.0
	DefaultFallbackYield         = 1500.0
)

// YieldTable returns the base yield in kg per acre for a crop label.
type YieldTable interface {
	BaseYield(label string) (float64, bool)
}

// ScorerConfig holds configuration for the scorer.
type ScorerConfig struct {
	Weights Weights

	// Yields is optional. Labels without an entry use FallbackYield.
	Yields YieldTable

	FallbackYield         float64
	FertilizerCostPerArea float64
}

// Scorer computes the ranking score and profit proxy for a candidate.
// It is stateless and safe for concurrent use.
type Scorer struct {
	weights       Weights
	yields        YieldTable
	fallbackYield float64
	fertCost      float64
}

// NewScorer creates a scorer. Zero FallbackYield and FertilizerCostPerArea
// take the package defaults; weights are used as given.
func NewScorer(cfg ScorerConfig) *Scorer {
	fallback := cfg.FallbackYield
	if fallback <= 0 {
		fallback = DefaultFallbackYield
	}
	cost := cfg.FertilizerCostPerArea
	if cost == 0 {
		cost = DefaultFertilizerCostPerArea
	}
	return &Scorer{
		weights:       cfg.Weights,
		yields:        cfg.Yields,
		fallbackYield: fallback,
		fertCost:      cost,
	}
}

// Weights returns the configured weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns
//
//	w_prob*p + w_trend*trend7 + w_z*z30 + w_rain*rainfall/100
//
// where absent market terms contribute 0.
func (s *Scorer) Score(probability float64, m market.Features, w weather.Features) float64 {
	score := s.weights.Prob * probability
	if m.PriceTrend7 != nil {
		score += s.weights.Trend * *m.PriceTrend7
	}
	if m.PriceZ30 != nil {
		score += s.weights.Z * *m.PriceZ30
	}
	score += s.weights.Rain * w.Rainfall / 100
	return score
}

// ProfitProxy returns price_used*yield - fertilizer cost. It is informational
// and never part of the sort key.
func (s *Scorer) ProfitProxy(label string, m market.Features) float64 {
	return m.PriceUsed()*s.yieldFor(label) - s.fertCost
}

func (s *Scorer) yieldFor(label string) float64 {
	if s.yields != nil {
		if y, ok := s.yields.BaseYield(label); ok {
			return y
		}
	}
	return s.fallbackYield
}
