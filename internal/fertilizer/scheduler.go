// Package fertilizer computes per-crop fertilizer timing and wraps the
// fertilizer product classifier.
package fertilizer

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/crop"
)

// ErrInvalidAge is returned for negative crop ages.
var ErrInvalidAge = fmt.Errorf("crop age must be non-negative: %w", apperr.ErrInvalidInput)

// StagePostHarvest is the stage reported once age exceeds the crop duration.
const StagePostHarvest = "post_harvest"

// ExhaustedMessage accompanies a schedule with no remaining applications.
const ExhaustedMessage = "No further fertilizer needed, the crop is nearing maturity."

// Entry is one upcoming fertilizer application.
type Entry struct {
	Fertilizer       string `json:"fertilizer"`
	DayOfApplication int    `json:"day_of_application"`
	Stage            string `json:"stage"`
}

// Schedule is the remaining fertilizer plan for a crop at a given age.
type Schedule struct {
	Crop        string  `json:"crop"`
	CropAgeDays int     `json:"crop_age_days"`
	Stage       string  `json:"stage"`
	Entries     []Entry `json:"next_fertilizer_schedule"`

	// Exhausted is set when no application day remains. Entries is then
	// empty and Message explains why.
	Exhausted bool   `json:"-"`
	Message   string `json:"message,omitempty"`
}

// Scheduler looks up fertilizer timing from the crop catalog.
type Scheduler struct {
	catalog *crop.Catalog
}

// NewScheduler creates a scheduler over catalog.
func NewScheduler(catalog *crop.Catalog) *Scheduler {
	return &Scheduler{catalog: catalog}
}

// Schedule returns the current growth stage and every application due on
// or after ageDays, ordered by day then fertilizer.
func (s *Scheduler) Schedule(cropName string, ageDays int) (*Schedule, error) {
	if ageDays < 0 {
		return nil, ErrInvalidAge
	}
	meta, err := s.catalog.Lookup(cropName)
	if err != nil {
		return nil, err
	}

	// cases.Caser is stateful; one per call.
	title := cases.Title(language.English)

	stage := Stage(meta.GrowthStages, ageDays)
	out := &Schedule{
		Crop:        title.String(meta.Name),
		CropAgeDays: ageDays,
		Stage:       stage,
	}

	ferts := make([]string, 0, len(meta.RecommendedFertilizers))
	for name := range meta.RecommendedFertilizers {
		ferts = append(ferts, name)
	}
	sort.Strings(ferts)

	for _, name := range ferts {
		display := title.String(strings.ReplaceAll(name, "_", " "))
		for _, day := range meta.RecommendedFertilizers[name] {
			if day < ageDays {
				continue
			}
			out.Entries = append(out.Entries, Entry{
				Fertilizer:       display,
				DayOfApplication: day,
				Stage:            stage,
			})
		}
	}
	sort.SliceStable(out.Entries, func(i, j int) bool {
		if out.Entries[i].DayOfApplication != out.Entries[j].DayOfApplication {
			return out.Entries[i].DayOfApplication < out.Entries[j].DayOfApplication
		}
		return out.Entries[i].Fertilizer < out.Entries[j].Fertilizer
	})

	if len(out.Entries) == 0 {
		out.Exhausted = true
		out.Message = ExhaustedMessage
	}
	return out, nil
}

// Stage returns the first stage whose cumulative end is >= ageDays, or
// StagePostHarvest when ageDays is past the last stage.
func Stage(stages crop.Stages, ageDays int) string {
	total := 0
	for _, st := range stages {
		total += st.Days
		if ageDays <= total {
			return st.Name
		}
	}
	return StagePostHarvest
}
