package datagov_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/market/datagov"
	"github.com/agrimind/agrimind/internal/provider/resilience"
)

func newTestClient(url string) *datagov.Client {
	cfg := resilience.DefaultClientConfig("test")
	cfg.MaxRetries = 1
	return datagov.NewClient(datagov.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		ResourceID: "rid-1",
		HTTPClient: resilience.NewClient(cfg),
	})
}

func TestClient_GetPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/rid-1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api-key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "10000", q.Get("limit"))
		assert.Equal(t, "Paddy", q.Get("filters[commodity]"))
		assert.Equal(t, "Tamil Nadu", q.Get("filters[state]"))
		assert.Empty(t, q.Get("filters[district]"))
		assert.Equal(t, "28/05/2025", q.Get("filters[arrival_date_from]"))
		assert.Equal(t, "30/06/2025", q.Get("filters[arrival_date_to]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 3, "count": 3, "records": [
			{"state":"Tamil Nadu","district":"Thanjavur","market":"Kumbakonam","commodity":"Paddy",
			 "arrival_date":"27/06/2025","min_price":"1,900","max_price":"2,300","modal_price":"2,150.50"},
			{"state":"Tamil Nadu","district":"Thanjavur","market":"Papanasam","commodity":"Paddy",
			 "arrival_date":"28/06/2025","min_price":1800,"max_price":null,"modal_price":"NR"},
			{"state":"Tamil Nadu","district":"Thanjavur","market":"Orathanadu","commodity":"Paddy",
			 "arrival_date":"not a date","modal_price":2000}
		]}`))
	}))
	defer server.Close()

	from := time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	records, err := newTestClient(server.URL).GetPrices(context.Background(), "Paddy",
		market.RegionFilters{State: "Tamil Nadu"}, from, to)
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "Kumbakonam", first.Market)
	require.NotNil(t, first.ModalPrice)
	assert.Equal(t, 2150.50, *first.ModalPrice)
	assert.Equal(t, 1900.0, *first.MinPrice)
	assert.Equal(t, time.Date(2025, 6, 27, 0, 0, 0, 0, time.UTC), first.ArrivalDate)

	assert.Nil(t, records[1].ModalPrice, "non-numeric price becomes missing")
	assert.Nil(t, records[1].MaxPrice)
	assert.Equal(t, 1800.0, *records[1].MinPrice)

	assert.True(t, records[2].ArrivalDate.IsZero())

	assert.Len(t, market.Clean(records), 1)
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetPrices(context.Background(), "Paddy", market.RegionFilters{}, time.Now(), time.Now())
	assert.ErrorIs(t, err, market.ErrProviderUnavailable)
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records": "oops"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetPrices(context.Background(), "Paddy", market.RegionFilters{}, time.Now(), time.Now())
	assert.ErrorIs(t, err, market.ErrProviderUnavailable)
}

func TestClient_TransportErrorOmitsAPIKey(t *testing.T) {
	const apiKey = "SECRET-KEY-123"

	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig(datagov.ProviderName)
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = time.Millisecond
	cfg.Registry = registry

	client := datagov.NewClient(datagov.ClientConfig{
		APIKey:     apiKey,
		BaseURL:    "http://127.0.0.1:1",
		ResourceID: "rid-1",
		HTTPClient: resilience.NewClient(cfg),
	})

	_, err := client.GetPrices(context.Background(), "Paddy", market.RegionFilters{State: "Punjab"}, time.Now(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.NotContains(t, err.Error(), apiKey)
	assert.Contains(t, err.Error(), "http://127.0.0.1:1/resource/rid-1")

	snap := registry.Snapshot()
	require.Len(t, snap, 1)
	require.NotNil(t, snap[0].LastFailureAt)
	assert.NotContains(t, snap[0].LastError, apiKey)
	assert.Equal(t, "upstream unavailable", snap[0].LastError)
}
