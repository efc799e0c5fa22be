// Package model talks to the model server hosting the crop suitability and
// fertilizer classifiers, and holds the categorical encoders they use.
package model

import (
	"fmt"

	"github.com/agrimind/agrimind/internal/apperr"
)

// ErrModelUnavailable is returned when the model server or encoder artifacts
// cannot be used.
var ErrModelUnavailable = fmt.Errorf("model server: %w", apperr.ErrModelUnavailable)

// Prediction is the suitability model output. Either Labels/Probabilities
// are set (same length), or only Label when the model has no probability output.
type Prediction struct {
	Labels        []string  `json:"labels,omitempty"`
	Probabilities []float64 `json:"probabilities,omitempty"`
	Label         string    `json:"label,omitempty"`
}

// HasProbabilities reports whether a full distribution was returned.
func (p *Prediction) HasProbabilities() bool {
	return len(p.Labels) > 0 && len(p.Labels) == len(p.Probabilities)
}

// FertilizerInput is the feature template for the fertilizer classifier.
type FertilizerInput struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Moisture    float64 `json:"moisture"`
	SoilType    string  `json:"soil_type"`
	CropType    string  `json:"crop_type"`
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
}

// Defaults used when a fertilizer query does not specify soil type or moisture.
const (
	DefaultSoilType = "Loamy"
	DefaultMoisture = 30.0
)

// FertilizerPrediction is the raw classifier output: a class index to decode
// through the fertilizer encoder, or a label when the server decodes itself.
type FertilizerPrediction struct {
	Class *int   `json:"class,omitempty"`
	Label string `json:"label,omitempty"`
}
