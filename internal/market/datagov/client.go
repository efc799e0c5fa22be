// Package datagov implements market.Provider against the data.gov.in Open
// Government Data API for Agmarknet daily mandi prices.
package datagov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/provider/resilience"
)

const (
	// ProviderName identifies this market provider.
	ProviderName = "data-gov-in"

	// DefaultBaseURL is the OGD API base URL.
	DefaultBaseURL = "https://api.data.gov.in"

	// DefaultResourceID is the "current daily price of various commodities" dataset.
	DefaultResourceID = "9ef84268-d588-465a-a308-a864a43d0070"

	pageLimit  = 10000
	dateLayout = "02/01/2006"
)

// ClientConfig holds configuration for the data.gov.in client.
type ClientConfig struct {
	// APIKey is the data.gov.in API key (required).
	APIKey string

	BaseURL    string
	ResourceID string

	// HTTPClient is optional. If nil, a resilient client with defaults is used.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is a data.gov.in API client.
type Client struct {
	apiKey     string
	baseURL    string
	resourceID string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new data.gov.in client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	resourceID := cfg.ResourceID
	if resourceID == "" {
		resourceID = DefaultResourceID
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		resourceID: resourceID,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetPrices fetches price records for commodity arriving within [from, to].
func (c *Client) GetPrices(ctx context.Context, commodity string, filters market.RegionFilters, from, to time.Time) ([]market.Record, error) {
	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("filters[commodity]", commodity)
	q.Set("filters[arrival_date_from]", from.Format(dateLayout))
	q.Set("filters[arrival_date_to]", to.Format(dateLayout))
	if filters.State != "" {
		q.Set("filters[state]", filters.State)
	}
	if filters.District != "" {
		q.Set("filters[district]", filters.District)
	}
	if filters.Market != "" {
		q.Set("filters[market]", filters.Market)
	}

	resource := fmt.Sprintf("%s/resource/%s", c.baseURL, url.PathEscape(c.resourceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", redactURL(err, resource))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", redactURL(err, resource))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %w", resp.StatusCode, market.ErrProviderUnavailable)
	}

	var body recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %v: %w", err, market.ErrProviderUnavailable)
	}

	records := make([]market.Record, 0, len(body.Records))
	for _, r := range body.Records {
		records = append(records, r.toRecord())
	}

	c.logger.Debug().
		Str("commodity", commodity).
		Int("records", len(records)).
		Int("total", body.Total).
		Msg("fetched mandi prices")

	return records, nil
}

// redactURL drops the query string, and with it the API key, from any
// *url.Error in err's chain.
func redactURL(err error, resource string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = resource
	}
	return err
}

type recordsResponse struct {
	Total   int         `json:"total"`
	Count   int         `json:"count"`
	Records []rawRecord `json:"records"`
}

type rawRecord struct {
	State       string    `json:"state"`
	District    string    `json:"district"`
	Market      string    `json:"market"`
	Commodity   string    `json:"commodity"`
	ArrivalDate string    `json:"arrival_date"`
	MinPrice    flexFloat `json:"min_price"`
	MaxPrice    flexFloat `json:"max_price"`
	ModalPrice  flexFloat `json:"modal_price"`
}

func (r rawRecord) toRecord() market.Record {
	return market.Record{
		Commodity:   r.Commodity,
		State:       r.State,
		District:    r.District,
		Market:      r.Market,
		ArrivalDate: parseArrivalDate(r.ArrivalDate),
		ModalPrice:  r.ModalPrice.value,
		MinPrice:    r.MinPrice.value,
		MaxPrice:    r.MaxPrice.value,
	}
}

// parseArrivalDate accepts day-first dates; unparseable values yield the zero time.
func parseArrivalDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "02-01-2006", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// flexFloat decodes a JSON number or numeric string ("1,250.50").
// Anything else decodes to nil instead of failing the whole response.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil //nolint:nilerr // malformed values become missing
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil //nolint:nilerr // malformed values become missing
	}
	f.value = &v
	return nil
}
