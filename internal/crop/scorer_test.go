package crop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrimind/agrimind/internal/crop"
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/weather"
)

type yieldMap map[string]float64

func (m yieldMap) BaseYield(label string) (float64, bool) {
	y, ok := m[label]
	return y, ok
}

func ptr(v float64) *float64 { return &v }

func TestScorer_Score(t *testing.T) {
	s := crop.NewScorer(crop.ScorerConfig{Weights: crop.DefaultWeights()})

	m := market.Features{
		PriceLatest: ptr(2000),
		PriceMed30:  ptr(1900),
		PriceTrend7: ptr(0.2),
		PriceZ30:    ptr(1.5),
	}
	w := weather.Features{Rainfall: 50}

	// 0.5*0.8 + 0.3*0.2 + 0.1*1.5 - 0.1*0.5
	assert.InDelta(t, 0.56, s.Score(0.8, m, w), 1e-12)
}

func TestScorer_Deterministic(t *testing.T) {
	s := crop.NewScorer(crop.ScorerConfig{Weights: crop.DefaultWeights()})
	m := market.Features{PriceTrend7: ptr(0.1234567), PriceZ30: ptr(-0.987654)}
	w := weather.Features{Rainfall: 33.3}

	first := s.Score(0.3141, m, w)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, s.Score(0.3141, m, w))
	}
}

func TestScorer_MissingMarket(t *testing.T) {
	s := crop.NewScorer(crop.ScorerConfig{Weights: crop.DefaultWeights()})
	w := weather.Features{Rainfall: 120}

	got := s.Score(0.6, market.Features{}, w)
	assert.InDelta(t, 0.5*0.6-0.1*1.2, got, 1e-12)
}

func TestScorer_CustomWeights(t *testing.T) {
	s := crop.NewScorer(crop.ScorerConfig{Weights: crop.Weights{Prob: 1}})
	m := market.Features{PriceTrend7: ptr(5), PriceZ30: ptr(5)}

	assert.Equal(t, 0.4, s.Score(0.4, m, weather.Features{Rainfall: 500}))
}

func TestScorer_ProfitProxy(t *testing.T) {
	s := crop.NewScorer(crop.ScorerConfig{
		Weights: crop.DefaultWeights(),
		Yields:  yieldMap{"rice": 2200},
	})

	tests := []struct {
		name  string
		label string
		m     market.Features
		want  float64
	}{
		{"latest price", "rice", market.Features{PriceLatest: ptr(20), PriceMed30: ptr(10)}, 20*2200 - 2500},
		{"median fallback", "rice", market.Features{PriceMed30: ptr(10)}, 10*2200 - 2500},
		{"no price", "rice", market.Features{}, -2500},
		{"fallback yield", "quinoa", market.Features{PriceLatest: ptr(10)}, 10*1500 - 2500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.ProfitProxy(tt.label, tt.m), 1e-9)
		})
	}
}
