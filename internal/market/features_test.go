package market_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/market"
)

func series(prices ...float64) []market.Record {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Record, len(prices))
	for i, p := range prices {
		p := p
		out[i] = market.Record{ArrivalDate: start.AddDate(0, 0, i), ModalPrice: &p}
	}
	return out
}

func TestEngineer_Empty(t *testing.T) {
	got := market.Engineer(nil)
	assert.True(t, got.Absent())
	assert.Equal(t, 0.0, got.PriceUsed())
}

func TestEngineer_Trend14(t *testing.T) {
	got := market.Engineer(series(10, 10, 10, 10, 10, 10, 10, 20, 20, 20, 20, 20, 20, 20))

	require.NotNil(t, got.PriceTrend7)
	assert.InDelta(t, 1.0, *got.PriceTrend7, 1e-12)
	assert.Equal(t, 20.0, *got.PriceLatest)
	assert.Equal(t, 15.0, *got.PriceMed30)
	assert.Equal(t, 14, got.Observations)
}

func TestEngineer_TrendShortSeriesUsesFullMean(t *testing.T) {
	// last 7 mean = 13, full mean = 12
	got := market.Engineer(series(5, 10, 10, 10, 15, 15, 15, 15, 15))

	require.NotNil(t, got.PriceTrend7)
	recent := (10 + 10 + 15 + 15 + 15 + 15 + 15) / 7.0
	full := (5 + 10 + 10 + 10 + 15 + 15 + 15 + 15 + 15) / 9.0
	assert.InDelta(t, (recent-full)/full, *got.PriceTrend7, 1e-12)
}

func TestEngineer_TrendZeroPriorGuarded(t *testing.T) {
	got := market.Engineer(series(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1))

	require.NotNil(t, got.PriceTrend7)
	assert.False(t, math.IsInf(*got.PriceTrend7, 0))
	assert.False(t, math.IsNaN(*got.PriceTrend7))
}

func TestEngineer_ZScoreDegenerate(t *testing.T) {
	single := market.Engineer(series(2100))
	require.NotNil(t, single.PriceZ30)
	assert.Equal(t, 0.0, *single.PriceZ30)

	constant := market.Engineer(series(1800, 1800, 1800))
	require.NotNil(t, constant.PriceZ30)
	assert.Equal(t, 0.0, *constant.PriceZ30)
}

func TestEngineer_ZScoreSampleStdDev(t *testing.T) {
	// mean 2, sample stdev 1
	got := market.Engineer(series(1, 2, 3))

	require.NotNil(t, got.PriceZ30)
	assert.InDelta(t, 1.0, *got.PriceZ30, 1e-12)
}

func TestEngineer_Windows30(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	got := market.Engineer(series(prices...))

	// last 30 are 11..40, median 25.5
	assert.InDelta(t, 25.5, *got.PriceMed30, 1e-12)
	assert.Equal(t, 40.0, *got.PriceLatest)
}

func TestFeatures_PriceUsed(t *testing.T) {
	latest, med := 2000.0, 1900.0

	assert.Equal(t, 2000.0, market.Features{PriceLatest: &latest, PriceMed30: &med}.PriceUsed())
	assert.Equal(t, 1900.0, market.Features{PriceMed30: &med}.PriceUsed())
	assert.Equal(t, 0.0, market.Features{}.PriceUsed())
}
