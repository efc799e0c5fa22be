package market_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/market"
)

type mockProvider struct {
	mu        sync.Mutex
	callCount int
	from, to  time.Time
	filters   market.RegionFilters
	records   []market.Record
	err       error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) GetPrices(_ context.Context, _ string, filters market.RegionFilters, from, to time.Time) ([]market.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.from, m.to, m.filters = from, to, filters
	return m.records, m.err
}

var fixedNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newService(p market.Provider) *market.Service {
	return market.NewService(market.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
	})
}

func price(v float64) *float64 { return &v }

func TestService_GetFeatures_Window(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider)

	filters := market.RegionFilters{State: "Tamil Nadu", District: "Thanjavur"}
	_, err := svc.GetFeatures(context.Background(), "Paddy", filters, 30)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, provider.to)
	assert.Equal(t, fixedNow.AddDate(0, 0, -33), provider.from)
	assert.Equal(t, filters, provider.filters)
}

func TestService_GetFeatures_NoRecords(t *testing.T) {
	svc := newService(&mockProvider{})

	got, err := svc.GetFeatures(context.Background(), "Paddy", market.RegionFilters{}, 30)
	require.NoError(t, err)
	assert.True(t, got.Absent())
}

func TestService_GetFeatures_DropsAndSorts(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC) }
	provider := &mockProvider{records: []market.Record{
		{ArrivalDate: d(3), ModalPrice: price(300)},
		{ArrivalDate: d(1), ModalPrice: price(100)},
		{ArrivalDate: d(2), ModalPrice: nil},
		{ArrivalDate: time.Time{}, ModalPrice: price(999)},
		{ArrivalDate: d(2), ModalPrice: price(200)},
	}}
	svc := newService(provider)

	got, err := svc.GetFeatures(context.Background(), "Maize", market.RegionFilters{}, 30)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Observations)
	assert.Equal(t, 300.0, *got.PriceLatest)
	assert.Equal(t, 200.0, *got.PriceMed30)
}

func TestService_GetFeatures_ProviderError(t *testing.T) {
	svc := newService(&mockProvider{err: errors.New("connection reset")})

	_, err := svc.GetFeatures(context.Background(), "Wheat", market.RegionFilters{}, 30)
	assert.ErrorIs(t, err, market.ErrProviderUnavailable)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}

func TestService_GetFeatures_EmptyCommodity(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider)

	_, err := svc.GetFeatures(context.Background(), "  ", market.RegionFilters{}, 30)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, 0, provider.callCount)
}

func TestClean_StableForSameDay(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := market.Clean([]market.Record{
		{ArrivalDate: day, ModalPrice: price(1), Market: "a"},
		{ArrivalDate: day, ModalPrice: price(2), Market: "b"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Market)
	assert.Equal(t, "b", out[1].Market)
}
