package models

import "github.com/agrimind/agrimind/internal/fertilizer"

// FertilizerScheduleResponse is the body of GET /recommend_fertilizer.
// Message is set, and the schedule empty, once every application day has
// passed.
type FertilizerScheduleResponse struct {
	Crop                   string             `json:"crop"`
	CropAgeDays            int                `json:"crop_age_days"`
	Stage                  string             `json:"stage"`
	NextFertilizerSchedule []fertilizer.Entry `json:"next_fertilizer_schedule"`
	Message                string             `json:"message,omitempty"`
}

// NewFertilizerScheduleResponse converts a schedule into its wire form.
func NewFertilizerScheduleResponse(s *fertilizer.Schedule) FertilizerScheduleResponse {
	entries := s.Entries
	if entries == nil {
		entries = []fertilizer.Entry{}
	}
	return FertilizerScheduleResponse{
		Crop:                   s.Crop,
		CropAgeDays:            s.CropAgeDays,
		Stage:                  s.Stage,
		NextFertilizerSchedule: entries,
		Message:                s.Message,
	}
}

// FertilizerProductResponse is the body of GET /recommend_fertilizer_product.
type FertilizerProductResponse struct {
	Fertilizer string `json:"fertilizer"`
}
