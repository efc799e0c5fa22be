// Package config loads AgriMind runtime configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (a .env file in the working directory is loaded first
// if present). The returned Config is treated as immutable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration shared by cmd/api and cmd/worker.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Weather   WeatherConfig   `yaml:"weather"`
	Market    MarketConfig    `yaml:"market"`
	Model     ModelConfig     `yaml:"model"`
	LLM       LLMConfig       `yaml:"llm"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Database  DatabaseConfig  `yaml:"database"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool `yaml:"require_tls"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// WeatherConfig configures the Open-Meteo forecast source.
type WeatherConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	HorizonDays int           `yaml:"horizon_days"`

	// Default is used only when the forecast source fails and the policy is enabled.
	Default DefaultWeather `yaml:"default"`
}

// DefaultWeather is the opt-in fallback applied when the forecast is unavailable.
type DefaultWeather struct {
	Enabled     bool    `yaml:"enabled"`
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
	Rainfall    float64 `yaml:"rainfall"`
	RainDays    int     `yaml:"rain_days"`
}

// MarketConfig configures the data.gov.in mandi price API.
type MarketConfig struct {
	BaseURL     string        `yaml:"base_url"`
	ResourceID  string        `yaml:"resource_id"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	WindowDays  int           `yaml:"window_days"`
	CushionDays int           `yaml:"cushion_days"`
}

// ModelConfig configures the suitability/fertilizer model server.
type ModelConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	EncodersPath string        `yaml:"encoders_path"`
}

// LLMConfig configures the optional chat fallback.
type LLMConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScoringConfig holds the ranking weights and profit proxy constants.
type ScoringConfig struct {
	WProb                 float64 `yaml:"w_prob"`
	WTrend                float64 `yaml:"w_trend"`
	WZ                    float64 `yaml:"w_z"`
	WRain                 float64 `yaml:"w_rain"`
	FertilizerCostPerArea float64 `yaml:"fertilizer_cost_per_area"`
	FallbackYield         float64 `yaml:"fallback_yield"`
	DefaultTopK           int     `yaml:"default_top_k"`
	MarketConcurrency     int     `yaml:"market_concurrency"`
}

type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// WorkerConfig configures the market snapshot refresher.
type WorkerConfig struct {
	Interval       time.Duration  `yaml:"interval"`
	Concurrency    int            `yaml:"concurrency"`
	Timeout        time.Duration  `yaml:"timeout"`
	PubSubProject  string         `yaml:"pubsub_project"`
	PubSubSubName  string         `yaml:"pubsub_subscription"`
	Targets        []RegionTarget `yaml:"targets"`
	PubSubDisabled bool           `yaml:"pubsub_disabled"`
}

// RegionTarget is one farming region refreshed by the worker.
type RegionTarget struct {
	Name     string  `yaml:"name"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	State    string  `yaml:"state"`
	District string  `yaml:"district"`
	Market   string  `yaml:"market"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.open-meteo.com",
			Timeout:     20 * time.Second,
			HorizonDays: 7,
		},
		Market: MarketConfig{
			BaseURL:     "https://api.data.gov.in",
			ResourceID:  "9ef84268-d588-465a-a308-a864a43d0070",
			Timeout:     20 * time.Second,
			WindowDays:  30,
			CushionDays: 3,
		},
		Model: ModelConfig{
			BaseURL: "http://localhost:8500",
			Timeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3",
			Timeout: 60 * time.Second,
		},
		Scoring: ScoringConfig{
			WProb:                 0.5,
			WTrend:                0.3,
			WZ:                    0.1,
			WRain:                 -0.1,
			FertilizerCostPerArea: 2500,
			FallbackYield:         1500,
			DefaultTopK:           5,
			MarketConcurrency:     4,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "agrimind",
			Password:        "localdev",
			Name:            "agrimind",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Worker: WorkerConfig{
			Interval:      6 * time.Hour,
			Concurrency:   3,
			Timeout:       2 * time.Minute,
			PubSubSubName: "agrimind-worker-jobs",
			Targets:       DefaultTargets(),
		},
	}
}

// DefaultTargets returns the Tamil Nadu districts refreshed by default.
func DefaultTargets() []RegionTarget {
	return []RegionTarget{
		{Name: "Thanjavur", Lat: 10.787, Lon: 79.1378, State: "Tamil Nadu", District: "Thanjavur"},
		{Name: "Coimbatore", Lat: 11.0168, Lon: 76.9558, State: "Tamil Nadu", District: "Coimbatore"},
		{Name: "Madurai", Lat: 9.9252, Lon: 78.1198, State: "Tamil Nadu", District: "Madurai"},
		{Name: "Tiruchirappalli", Lat: 10.7905, Lon: 78.7047, State: "Tamil Nadu", District: "Tiruchirappalli"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or missing) and the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	cfg := Default()

	if path == "" {
		path = os.Getenv("AGRIMIND_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	if c.Weather.HorizonDays <= 0 {
		return fmt.Errorf("weather.horizon_days must be positive, got %d", c.Weather.HorizonDays)
	}
	if c.Market.WindowDays <= 0 {
		return fmt.Errorf("market.window_days must be positive, got %d", c.Market.WindowDays)
	}
	if c.Scoring.DefaultTopK <= 0 {
		return fmt.Errorf("scoring.default_top_k must be positive, got %d", c.Scoring.DefaultTopK)
	}
	if c.Scoring.MarketConcurrency <= 0 {
		return fmt.Errorf("scoring.market_concurrency must be positive, got %d", c.Scoring.MarketConcurrency)
	}
	if c.Worker.Interval <= 0 {
		return fmt.Errorf("worker.interval must be positive, got %s", c.Worker.Interval)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "APP_PORT")
	setString(&cfg.Server.Env, "APP_ENV")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Weather.BaseURL, "WEATHER_BASE_URL")
	setString(&cfg.Market.BaseURL, "MARKET_BASE_URL")
	setString(&cfg.Market.ResourceID, "MARKET_RESOURCE_ID")
	setString(&cfg.Market.APIKey, "DATA_GOV_API_KEY")
	setString(&cfg.Model.BaseURL, "MODEL_BASE_URL")
	setString(&cfg.Model.EncodersPath, "MODEL_ENCODERS_PATH")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSL_MODE")
	setString(&cfg.Worker.PubSubProject, "GOOGLE_CLOUD_PROJECT")
	setString(&cfg.Worker.PubSubSubName, "PUBSUB_SUBSCRIPTION")

	bools := []struct {
		dst *bool
		key string
	}{
		{&cfg.Server.RequireTLS, "REQUIRE_TLS"},
		{&cfg.Telemetry.Enabled, "OTEL_ENABLED"},
		{&cfg.LLM.Enabled, "LLM_ENABLED"},
		{&cfg.Database.Enabled, "DB_ENABLED"},
		{&cfg.Weather.Default.Enabled, "WEATHER_DEFAULT_ENABLED"},
		{&cfg.Worker.PubSubDisabled, "PUBSUB_DISABLED"},
	}
	for _, b := range bools {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	floats := []struct {
		dst *float64
		key string
	}{
		{&cfg.Scoring.WProb, "SCORE_W_PROB"},
		{&cfg.Scoring.WTrend, "SCORE_W_TREND"},
		{&cfg.Scoring.WZ, "SCORE_W_Z"},
		{&cfg.Scoring.WRain, "SCORE_W_RAIN"},
		{&cfg.Scoring.FertilizerCostPerArea, "FERT_COST_PER_ACRE"},
	}
	for _, f := range floats {
		if err := setFloat(f.dst, f.key); err != nil {
			return err
		}
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.Database.Port, "DB_PORT"},
		{&cfg.Database.MaxConns, "DB_MAX_CONNS"},
		{&cfg.Scoring.DefaultTopK, "DEFAULT_TOP_K"},
		{&cfg.Worker.Concurrency, "WORKER_CONCURRENCY"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}

	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&cfg.Weather.Timeout, "WEATHER_TIMEOUT"},
		{&cfg.Market.Timeout, "MARKET_TIMEOUT"},
		{&cfg.LLM.Timeout, "LLM_TIMEOUT"},
		{&cfg.Worker.Interval, "WORKER_INTERVAL"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = i
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}
