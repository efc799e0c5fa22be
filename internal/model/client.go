package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/provider/resilience"
)

const (
	// ProviderName identifies the model server in logs and the provider registry.
	ProviderName = "model-server"

	// DefaultBaseURL is the model server address for local development.
	DefaultBaseURL = "http://localhost:8500"

	// CropFeatureCount is the length of the suitability feature vector
	// (N, P, K, temperature, humidity, ph, rainfall).
	CropFeatureCount = 7

	// FertilizerFeatureCount is the length of the fertilizer feature vector
	// (temperature, humidity, moisture, soil, crop, N, K, P).
	FertilizerFeatureCount = 8
)

// ClientConfig holds configuration for the model server client.
type ClientConfig struct {
	BaseURL string

	// HTTPClient is optional. If nil, a resilient client with defaults is used.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client calls the model server over HTTP.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new model server client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Probe checks the model server is reachable. Called once at startup to
// decide which capabilities are enabled.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for reuse

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d: %w", resp.StatusCode, ErrModelUnavailable)
	}
	return nil
}

// PredictCrop returns the suitability distribution for
// [N, P, K, temperature, humidity, ph, rainfall].
func (c *Client) PredictCrop(ctx context.Context, features []float64) (*Prediction, error) {
	if len(features) != CropFeatureCount {
		return nil, fmt.Errorf("crop features: want %d values, got %d", CropFeatureCount, len(features))
	}

	var pred Prediction
	if err := c.post(ctx, "/v1/crop/predict", features, &pred); err != nil {
		return nil, err
	}

	if !pred.HasProbabilities() && pred.Label == "" {
		return nil, fmt.Errorf("crop prediction has neither probabilities nor label: %w", ErrModelUnavailable)
	}
	if len(pred.Labels) != len(pred.Probabilities) {
		return nil, fmt.Errorf("crop prediction has %d labels and %d probabilities: %w",
			len(pred.Labels), len(pred.Probabilities), ErrModelUnavailable)
	}
	return &pred, nil
}

// PredictFertilizer returns the raw fertilizer class for
// [temperature, humidity, moisture, soil_idx, crop_idx, N, K, P].
func (c *Client) PredictFertilizer(ctx context.Context, features []float64) (*FertilizerPrediction, error) {
	if len(features) != FertilizerFeatureCount {
		return nil, fmt.Errorf("fertilizer features: want %d values, got %d", FertilizerFeatureCount, len(features))
	}

	var pred FertilizerPrediction
	if err := c.post(ctx, "/v1/fertilizer/predict", features, &pred); err != nil {
		return nil, err
	}
	if pred.Class == nil && pred.Label == "" {
		return nil, fmt.Errorf("fertilizer prediction has neither class nor label: %w", ErrModelUnavailable)
	}
	return &pred, nil
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

func (c *Client) post(ctx context.Context, path string, features []float64, out any) error {
	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Per-request failures keep their upstream class; ErrModelUnavailable is
	// reserved for a model that cannot serve at all.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server: %w", resilience.Classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("model server returned error status")
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("model server status %d: %w", resp.StatusCode, apperr.ErrUpstreamUnavailable)
		}
		return fmt.Errorf("unexpected status code %d: %w", resp.StatusCode, ErrModelUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %v: %w", err, ErrModelUnavailable)
	}
	return nil
}
