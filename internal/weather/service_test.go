package weather_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/weather"
)

type mockProvider struct {
	mu        sync.Mutex
	callCount int
	horizon   int
	forecast  *weather.DailyForecast
	err       error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) GetDailyForecast(_ context.Context, lat, lon float64, horizonDays int) (*weather.DailyForecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.horizon = horizonDays
	if m.err != nil {
		return nil, m.err
	}
	if m.forecast != nil {
		return m.forecast, nil
	}
	return &weather.DailyForecast{Lat: lat, Lon: lon, Days: []weather.Day{
		{Precipitation: f(3), TempMax: f(30), TempMin: f(20), Humidity: f(65)},
	}}, nil
}

func newService(p weather.Provider, fallback *weather.Features) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
		Default:  fallback,
	})
}

func TestService_GetFeatures(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, nil)

	got, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, got.Temperature, 1e-9)
	assert.InDelta(t, 65.0, got.Humidity, 1e-9)
	assert.InDelta(t, 3.0, got.Rainfall, 1e-9)
	assert.Equal(t, 1, got.RainDays)
	assert.Equal(t, 7, provider.horizon)
}

func TestService_NoCaching(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, provider.callCount)
}

func TestService_InvalidInput(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, nil)

	tests := []struct {
		name     string
		lat, lon float64
		horizon  int
	}{
		{"lat too high", 91, 0, 7},
		{"lon too low", 0, -181, 7},
		{"nan", math.NaN(), 0, 7},
		{"zero horizon", 10, 79, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetFeatures(context.Background(), tt.lat, tt.lon, tt.horizon)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, provider.callCount)
}

func TestService_ProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("dial tcp: connection refused")}
	svc := newService(provider, nil)

	_, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestService_TimeoutKeepsClassification(t *testing.T) {
	provider := &mockProvider{err: apperr.ErrUpstreamTimeout}
	svc := newService(provider, nil)

	_, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
	assert.ErrorIs(t, err, apperr.ErrUpstreamTimeout)
}

func TestService_MalformedForecast(t *testing.T) {
	provider := &mockProvider{forecast: &weather.DailyForecast{}}
	svc := newService(provider, nil)

	_, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
	assert.ErrorIs(t, err, weather.ErrMalformedForecast)
}

func TestService_DefaultPolicy(t *testing.T) {
	provider := &mockProvider{err: errors.New("boom")}
	svc := newService(provider, &weather.Features{Temperature: 28, Humidity: 70, Rainfall: 10, RainDays: 2})

	got, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
	require.NoError(t, err)
	assert.True(t, got.Defaulted)
	assert.Equal(t, 28.0, got.Temperature)

	// Returned copies are independent.
	got.Temperature = 0
	again, err := svc.GetFeatures(context.Background(), 10.8, 79.1, 7)
	require.NoError(t, err)
	assert.Equal(t, 28.0, again.Temperature)
}
