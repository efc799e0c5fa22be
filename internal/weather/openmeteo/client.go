// Package openmeteo implements weather.Provider against the Open-Meteo
// forecast API. No API key is required.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/provider/resilience"
	"github.com/agrimind/agrimind/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com"

	dailyFields = "precipitation_sum,temperature_2m_max,temperature_2m_min,relative_humidity_2m_mean"
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	BaseURL string

	// HTTPClient is optional. If nil, a resilient client with defaults is used.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
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
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDailyForecast fetches horizonDays of daily aggregates for a location.
func (c *Client) GetDailyForecast(ctx context.Context, lat, lon float64, horizonDays int) (*weather.DailyForecast, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("daily", dailyFields)
	q.Set("forecast_days", strconv.Itoa(horizonDays))
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %w", resp.StatusCode, weather.ErrProviderUnavailable)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %v: %w", err, weather.ErrMalformedForecast)
	}

	return toForecast(&body)
}

func toForecast(body *forecastResponse) (*weather.DailyForecast, error) {
	d := body.Daily
	n := len(d.Time)
	if n == 0 {
		return nil, fmt.Errorf("empty daily.time: %w", weather.ErrMalformedForecast)
	}
	for name, series := range map[string][]*float64{
		"precipitation_sum":         d.PrecipitationSum,
		"temperature_2m_max":        d.TemperatureMax,
		"temperature_2m_min":        d.TemperatureMin,
		"relative_humidity_2m_mean": d.HumidityMean,
	} {
		if len(series) != n {
			return nil, fmt.Errorf("%s has %d values for %d days: %w", name, len(series), n, weather.ErrMalformedForecast)
		}
	}

	forecast := &weather.DailyForecast{
		Lat:       body.Latitude,
		Lon:       body.Longitude,
		Days:      make([]weather.Day, 0, n),
		FetchedAt: time.Now(),
	}
	for i := 0; i < n; i++ {
		date, err := time.Parse(time.DateOnly, d.Time[i])
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", d.Time[i], weather.ErrMalformedForecast)
		}
		forecast.Days = append(forecast.Days, weather.Day{
			Date:          date,
			Precipitation: d.PrecipitationSum[i],
			TempMax:       d.TemperatureMax[i],
			TempMin:       d.TemperatureMin[i],
			Humidity:      d.HumidityMean[i],
		})
	}
	return forecast, nil
}

// Open-Meteo response structures. Daily values may be null.

type forecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Daily     struct {
		Time             []string   `json:"time"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
		TemperatureMax   []*float64 `json:"temperature_2m_max"`
		TemperatureMin   []*float64 `json:"temperature_2m_min"`
		HumidityMean     []*float64 `json:"relative_humidity_2m_mean"`
	} `json:"daily"`
}
