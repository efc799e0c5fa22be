package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/api/models"
	"github.com/agrimind/agrimind/internal/api/response"
	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/fertilizer"
	"github.com/agrimind/agrimind/internal/model"
)

// ScheduleSource builds fertilizer schedules from crop metadata.
type ScheduleSource interface {
	Schedule(cropName string, ageDays int) (*fertilizer.Schedule, error)
}

// ProductAdvisor suggests a fertilizer product from field conditions.
type ProductAdvisor interface {
	Recommend(ctx context.Context, in model.FertilizerInput) (string, error)
}

// FertilizerHandler handles fertilizer endpoints.
type FertilizerHandler struct {
	scheduler ScheduleSource
	advisor   ProductAdvisor
	logger    zerolog.Logger
}

// NewFertilizerHandler creates a new FertilizerHandler.
func NewFertilizerHandler(scheduler ScheduleSource, advisor ProductAdvisor, logger zerolog.Logger) *FertilizerHandler {
	return &FertilizerHandler{
		scheduler: scheduler,
		advisor:   advisor,
		logger:    logger,
	}
}

// RecommendFertilizer handles GET /recommend_fertilizer - remaining
// applications for a crop of a given age.
func (h *FertilizerHandler) RecommendFertilizer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cropName := strings.TrimSpace(q.Get("crop"))
	if cropName == "" {
		fail(h.logger, w, r, apperr.InvalidInput("crop", "is required"), "invalid fertilizer schedule request")
		return
	}
	age, err := queryInt(q, "age", true, 0)
	if err != nil {
		fail(h.logger, w, r, err, "invalid fertilizer schedule request")
		return
	}

	schedule, err := h.scheduler.Schedule(cropName, age)
	if err != nil {
		fail(h.logger, w, r, err, "fertilizer schedule failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewFertilizerScheduleResponse(schedule))
}

// RecommendFertilizerProduct handles GET /recommend_fertilizer_product -
// classify the best fertilizer product for field conditions.
func (h *FertilizerHandler) RecommendFertilizerProduct(w http.ResponseWriter, r *http.Request) {
	if h.advisor == nil {
		response.CapabilityDisabled(w, r, "fertilizer product recommendation is not available")
		return
	}

	in, err := parseFertilizerInput(r)
	if err != nil {
		fail(h.logger, w, r, err, "invalid fertilizer product request")
		return
	}

	label, err := h.advisor.Recommend(r.Context(), in)
	if err != nil {
		fail(h.logger, w, r, err, "fertilizer product recommendation failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.FertilizerProductResponse{Fertilizer: label})
}

func parseFertilizerInput(r *http.Request) (model.FertilizerInput, error) {
	q := r.URL.Query()
	in := model.FertilizerInput{
		SoilType: strings.TrimSpace(q.Get("soil_type")),
		CropType: strings.TrimSpace(q.Get("crop_type")),
	}
	if in.SoilType == "" {
		in.SoilType = model.DefaultSoilType
	}
	if in.CropType == "" {
		return in, apperr.InvalidInput("crop_type", "is required")
	}

	fields := []struct {
		dst      *float64
		name     string
		required bool
		def      float64
	}{
		{&in.Temperature, "temperature", true, 0},
		{&in.Humidity, "humidity", true, 0},
		{&in.Moisture, "moisture", false, model.DefaultMoisture},
		{&in.Nitrogen, "nitrogen", true, 0},
		{&in.Phosphorus, "phosphorus", true, 0},
		{&in.Potassium, "potassium", true, 0},
	}
	for _, f := range fields {
		v, err := queryFloat(q, f.name, f.required, f.def)
		if err != nil {
			return in, err
		}
		*f.dst = v
	}
	return in, nil
}
