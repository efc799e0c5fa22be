package fertilizer

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/model"
)

// Recommender errors.
var (
	ErrRecommenderDisabled = fmt.Errorf("fertilizer recommendation is disabled: %w", apperr.ErrModelUnavailable)
	ErrInvalidInput        = fmt.Errorf("invalid fertilizer input: %w", apperr.ErrInvalidInput)
)

// Predictor runs the fertilizer classifier.
type Predictor interface {
	PredictFertilizer(ctx context.Context, features []float64) (*model.FertilizerPrediction, error)
}

// RecommenderConfig holds configuration for the recommender.
type RecommenderConfig struct {
	// Model and Encoders are both required for the recommender to be enabled.
	Model    Predictor
	Encoders *model.Encoders
	Logger   zerolog.Logger
}

// Recommender encodes categorical inputs and decodes the classifier output
// into a fertilizer product name.
type Recommender struct {
	model    Predictor
	encoders *model.Encoders
	logger   zerolog.Logger
}

// NewRecommender creates a new recommender.
func NewRecommender(cfg RecommenderConfig) *Recommender {
	return &Recommender{
		model:    cfg.Model,
		encoders: cfg.Encoders,
		logger:   cfg.Logger,
	}
}

// Enabled reports whether both the model and encoders are available.
func (r *Recommender) Enabled() bool {
	return r != nil && r.model != nil && r.encoders != nil
}

// Recommend returns a fertilizer product for in.
func (r *Recommender) Recommend(ctx context.Context, in model.FertilizerInput) (string, error) {
	if !r.Enabled() {
		return "", ErrRecommenderDisabled
	}
	if err := validate(in); err != nil {
		return "", err
	}

	soilIdx := r.encode(r.encoders.Soil, in.SoilType)
	cropIdx := r.encode(r.encoders.Crop, in.CropType)

	features := []float64{
		in.Temperature,
		in.Humidity,
		in.Moisture,
		float64(soilIdx),
		float64(cropIdx),
		in.Nitrogen,
		in.Potassium,
		in.Phosphorus,
	}

	pred, err := r.model.PredictFertilizer(ctx, features)
	if err != nil {
		return "", err
	}
	if pred.Label != "" {
		return pred.Label, nil
	}
	if pred.Class == nil {
		return "", fmt.Errorf("empty fertilizer prediction: %w", model.ErrModelUnavailable)
	}

	label, err := r.encoders.Fertilizer.Decode(*pred.Class)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	return label, nil
}

func (r *Recommender) encode(enc *model.LabelEncoder, value string) int {
	idx, match := enc.Encode(value)
	if match.Fallback() {
		r.logger.Warn().
			Str("encoder", enc.Name()).
			Str("value", value).
			Int("index", idx).
			Str("policy", string(match)).
			Msg("encoding fallback")
	}
	return idx
}

func validate(in model.FertilizerInput) error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"temperature", in.Temperature},
		{"humidity", in.Humidity},
		{"moisture", in.Moisture},
		{"nitrogen", in.Nitrogen},
		{"phosphorus", in.Phosphorus},
		{"potassium", in.Potassium},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%s must be a finite number: %w", v.name, ErrInvalidInput)
		}
	}
	if in.Humidity < 0 || in.Humidity > 100 {
		return fmt.Errorf("humidity must be within [0, 100]: %w", ErrInvalidInput)
	}
	if in.Moisture < 0 || in.Moisture > 100 {
		return fmt.Errorf("moisture must be within [0, 100]: %w", ErrInvalidInput)
	}
	if in.Nitrogen < 0 || in.Phosphorus < 0 || in.Potassium < 0 {
		return fmt.Errorf("nutrients must be non-negative: %w", ErrInvalidInput)
	}
	return nil
}
