package models

import (
	"math"

	"github.com/agrimind/agrimind/internal/crop"
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/weather"
)

// CropOption is one ranked crop in a recommendation.
type CropOption struct {
	Crop             string  `json:"crop"`
	Commodity        string  `json:"commodity"`
	ModelProbability float64 `json:"model_probability"`
	Score            float64 `json:"score"`
	PriceUsed        float64 `json:"price_used"`
	ExpectedProfit   float64 `json:"expected_profit"`

	// MarketTrendPct is the 7-observation price trend as a percentage,
	// omitted when no market data was available.
	MarketTrendPct *float64 `json:"market_trend_pct,omitempty"`

	DurationDays           int              `json:"duration_days,omitempty"`
	HarvestDate            *Date            `json:"harvest_date,omitempty"`
	RecommendedFertilizers map[string][]int `json:"recommended_fertilizers,omitempty"`

	Market market.Features `json:"market"`
}

// CropRecommendationResponse is the body of GET /recommend_crop.
type CropRecommendationResponse struct {
	BestCrop   *CropOption      `json:"best_crop"`
	AllOptions []CropOption     `json:"all_options"`
	Weather    weather.Features `json:"weather"`
	Date       Date             `json:"date"`

	// Fertilizer is the suggested product for the best crop, when available.
	Fertilizer string   `json:"fertilizer,omitempty"`
	LocalCrops []string `json:"local_crops,omitempty"`
}

// NewCropRecommendationResponse converts a ranking into its wire form.
// Catalog metadata is attached when the crop is known.
func NewCropRecommendationResponse(result *crop.Result, catalog *crop.Catalog) CropRecommendationResponse {
	resp := CropRecommendationResponse{
		AllOptions: make([]CropOption, 0, len(result.Candidates)),
		Weather:    result.Weather,
		Date:       Date(result.Date),
		Fertilizer: result.Fertilizer,
		LocalCrops: result.LocalCrops,
	}
	for _, c := range result.Candidates {
		resp.AllOptions = append(resp.AllOptions, newCropOption(c, catalog))
	}
	if len(resp.AllOptions) > 0 {
		best := resp.AllOptions[0]
		resp.BestCrop = &best
	}
	return resp
}

func newCropOption(c crop.Candidate, catalog *crop.Catalog) CropOption {
	opt := CropOption{
		Crop:             c.Label,
		Commodity:        c.Commodity,
		ModelProbability: c.ModelProbability,
		Score:            c.Score,
		PriceUsed:        c.Market.PriceUsed(),
		ExpectedProfit:   c.ProfitProxy,
		HarvestDate:      NewDatePtr(c.ExpectedHarvestDate),
		Market:           c.Market,
	}
	if c.Market.PriceTrend7 != nil {
		pct := math.Round(*c.Market.PriceTrend7*10000) / 100
		opt.MarketTrendPct = &pct
	}
	if catalog != nil {
		if meta, err := catalog.Lookup(c.Label); err == nil {
			opt.DurationDays = meta.DurationDays
			opt.RecommendedFertilizers = meta.RecommendedFertilizers
		}
	}
	return opt
}
