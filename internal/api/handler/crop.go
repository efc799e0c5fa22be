// Package handler provides HTTP handlers for the AgriMind API.
package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/api/models"
	"github.com/agrimind/agrimind/internal/api/response"
	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/crop"
	"github.com/agrimind/agrimind/internal/market"
)

// DefaultPH is used when a crop recommendation omits soil pH.
const DefaultPH = 6.5

// CropRanker ranks candidate crops for a location and soil.
type CropRanker interface {
	Rank(ctx context.Context, req crop.Request) (*crop.Result, error)
}

// CropHandler handles crop recommendation endpoints.
type CropHandler struct {
	ranker  CropRanker
	catalog *crop.Catalog
	logger  zerolog.Logger
}

// NewCropHandler creates a new CropHandler. catalog may be nil, in which
// case options carry no duration or fertilizer timings.
func NewCropHandler(ranker CropRanker, catalog *crop.Catalog, logger zerolog.Logger) *CropHandler {
	return &CropHandler{
		ranker:  ranker,
		catalog: catalog,
		logger:  logger,
	}
}

// RecommendCrop handles GET /recommend_crop - rank crops for a field.
func (h *CropHandler) RecommendCrop(w http.ResponseWriter, r *http.Request) {
	req, err := parseCropRequest(r.URL.Query())
	if err != nil {
		fail(h.logger, w, r, err, "invalid crop recommendation request")
		return
	}

	result, err := h.ranker.Rank(r.Context(), req)
	if err != nil {
		fail(h.logger, w, r, err, "crop recommendation failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewCropRecommendationResponse(result, h.catalog))
}

func parseCropRequest(q url.Values) (crop.Request, error) {
	var (
		req crop.Request
		err error
	)
	if req.Lat, err = queryFloat(q, "lat", true, 0); err != nil {
		return req, err
	}
	if req.Lon, err = queryFloat(q, "lon", true, 0); err != nil {
		return req, err
	}
	if req.Soil.N, err = queryFloat(q, "N", true, 0); err != nil {
		return req, err
	}
	if req.Soil.P, err = queryFloat(q, "P", true, 0); err != nil {
		return req, err
	}
	if req.Soil.K, err = queryFloat(q, "K", true, 0); err != nil {
		return req, err
	}
	if req.Soil.PH, err = queryFloat(q, "ph", false, DefaultPH); err != nil {
		return req, err
	}
	if req.Soil.Moisture, err = queryFloatPtr(q, "moisture"); err != nil {
		return req, err
	}
	if req.TopK, err = queryInt(q, "top_k", false, 0); err != nil {
		return req, err
	}
	if req.TopK < 0 {
		return req, apperr.InvalidInput("top_k", "must be positive")
	}

	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, perr := time.Parse(models.DateLayout, raw)
		if perr != nil {
			return req, apperr.InvalidInput("date", "must be YYYY-MM-DD")
		}
		req.Date = d
	}

	req.SoilType = strings.TrimSpace(q.Get("soil_type"))
	req.Region = market.RegionFilters{
		State:    strings.TrimSpace(q.Get("state")),
		District: strings.TrimSpace(q.Get("district")),
		Market:   strings.TrimSpace(q.Get("market")),
	}
	return req, nil
}
