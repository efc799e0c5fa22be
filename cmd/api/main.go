// Package main provides the entrypoint for the AgriMind API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/agrimind/agrimind/internal/api"
	"github.com/agrimind/agrimind/internal/api/handler"
	"github.com/agrimind/agrimind/internal/api/middleware"
	"github.com/agrimind/agrimind/internal/chat"
	"github.com/agrimind/agrimind/internal/config"
	"github.com/agrimind/agrimind/internal/crop"
	"github.com/agrimind/agrimind/internal/database"
	"github.com/agrimind/agrimind/internal/fertilizer"
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/market/datagov"
	"github.com/agrimind/agrimind/internal/model"
	"github.com/agrimind/agrimind/internal/provider/resilience"
	"github.com/agrimind/agrimind/internal/snapshot"
	"github.com/agrimind/agrimind/internal/telemetry"
	"github.com/agrimind/agrimind/internal/weather"
	"github.com/agrimind/agrimind/internal/weather/openmeteo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "agrimind-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AgriMind API")

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics(otel.Meter("github.com/agrimind/agrimind/provider"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Static crop data
	catalog, err := crop.DefaultCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load crop catalog")
	}
	commodities := market.DefaultCommodityMap()

	// Upstream clients share one registry for /v1/ops/status
	registry := resilience.NewRegistry()
	newHTTPClient := func(name string, timeout time.Duration) *resilience.Client {
		c := resilience.DefaultClientConfig(name)
		c.Timeout = timeout
		c.Registry = registry
		client := resilience.NewClient(c)
		registry.Register(name, client)
		return client
	}

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.Weather.BaseURL,
			HTTPClient: newHTTPClient("open-meteo", cfg.Weather.Timeout),
			Logger:     log,
		}),
		Logger:  log,
		Default: defaultWeather(cfg.Weather.Default),
		Metrics: providerMetrics,
	})

	if cfg.Market.APIKey == "" {
		log.Warn().Msg("DATA_GOV_API_KEY not set - market features will be absent")
	}
	marketService := market.NewService(market.ServiceConfig{
		Provider: datagov.NewClient(datagov.ClientConfig{
			APIKey:     cfg.Market.APIKey,
			BaseURL:    cfg.Market.BaseURL,
			ResourceID: cfg.Market.ResourceID,
			HTTPClient: newHTTPClient("data-gov-in", cfg.Market.Timeout),
			Logger:     log,
		}),
		Logger:      log,
		CushionDays: cfg.Market.CushionDays,
		Metrics:     providerMetrics,
	})

	// Model-backed capabilities are enabled once at startup
	var (
		suitability crop.SuitabilityModel
		advisor     *fertilizer.Recommender
	)
	modelClient := model.NewClient(model.ClientConfig{
		BaseURL:    cfg.Model.BaseURL,
		HTTPClient: newHTTPClient("model-server", cfg.Model.Timeout),
		Logger:     log,
	})
	probeCtx, cancelProbe := context.WithTimeout(ctx, cfg.Model.Timeout)
	probeErr := modelClient.Probe(probeCtx)
	cancelProbe()
	if probeErr != nil {
		log.Error().Err(probeErr).Msg("model server unavailable - crop ranking and fertilizer product disabled")
	} else {
		suitability = modelClient

		encoders, encErr := model.LoadEncoders(cfg.Model.EncodersPath)
		if encErr != nil {
			log.Error().Err(encErr).Msg("fertilizer encoders unavailable - fertilizer product disabled")
		}
		rec := fertilizer.NewRecommender(fertilizer.RecommenderConfig{
			Model:    modelClient,
			Encoders: encoders,
			Logger:   log,
		})
		if rec.Enabled() {
			advisor = rec
		}
	}

	rankerCfg := crop.RankerConfig{
		Weather: weatherService,
		Market:  marketService,
		Model:   suitability,
		Scorer: crop.NewScorer(crop.ScorerConfig{
			Weights: crop.Weights{
				Prob:  cfg.Scoring.WProb,
				Trend: cfg.Scoring.WTrend,
				Z:     cfg.Scoring.WZ,
				Rain:  cfg.Scoring.WRain,
			},
			Yields:                catalog,
			FallbackYield:         cfg.Scoring.FallbackYield,
			FertilizerCostPerArea: cfg.Scoring.FertilizerCostPerArea,
		}),
		Catalog:     catalog,
		Commodities: commodities,
		Logger:      log,
		HorizonDays: cfg.Weather.HorizonDays,
		WindowDays:  cfg.Market.WindowDays,
		DefaultTopK: cfg.Scoring.DefaultTopK,
		Concurrency: cfg.Scoring.MarketConcurrency,
	}
	var productAdvisor handler.ProductAdvisor
	if advisor != nil {
		rankerCfg.Fertilizer = advisor
		productAdvisor = advisor
	}
	ranker := crop.NewRanker(rankerCfg)

	// Chat: rules, FAQ index, optional LLM
	knowledge, err := chat.DefaultKnowledge()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load chat knowledge")
	}
	faqIndex, err := chat.NewIndex(knowledge.FAQ, chat.DefaultMinScore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build faq index")
	}
	defer faqIndex.Close() //nolint:errcheck // in-memory index

	chatCfg := chat.ServiceConfig{
		Knowledge:  knowledge,
		Index:      faqIndex,
		LLMTimeout: cfg.LLM.Timeout,
		Logger:     log,
	}
	if cfg.LLM.Enabled {
		chatCfg.LLM = chat.NewOllamaClient(chat.OllamaConfig{
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			HTTPClient: newHTTPClient("ollama", cfg.LLM.Timeout),
			Logger:     log,
		})
		log.Info().Str("model", cfg.LLM.Model).Msg("chat LLM fallback enabled")
	}
	chatService := chat.NewService(chatCfg)

	// Snapshot storage
	var snapshots snapshot.Repository = snapshot.NewInMemoryRepository()
	if cfg.Database.Enabled {
		pool, dbErr := database.Connect(ctx, cfg.Database)
		if dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to connect to database")
		}
		defer pool.Close()
		if dbErr := database.Migrate(ctx, pool); dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to migrate database")
		}
		snapshots = snapshot.NewPostgresRepository(pool)
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("database connected")
	}

	capabilities := handler.Capabilities{
		CropRanking:       ranker.Enabled(),
		FertilizerProduct: productAdvisor != nil,
		ChatLLM:           chatService.LLMEnabled(),
	}
	log.Info().
		Bool("crop_ranking", capabilities.CropRanking).
		Bool("fertilizer_product", capabilities.FertilizerProduct).
		Bool("chat_llm", capabilities.ChatLLM).
		Msg("capabilities resolved")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:           Version,
		BuildTime:         BuildTime,
		Logger:            log,
		ServiceName:       serviceName,
		Metrics:           metrics,
		RequireTLS:        cfg.Server.RequireTLS,
		CropHandler:       handler.NewCropHandler(ranker, catalog, log),
		FertilizerHandler: handler.NewFertilizerHandler(fertilizer.NewScheduler(catalog), productAdvisor, log),
		ChatHandler:       handler.NewChatHandler(chatService, log),
		Snapshots:         snapshots,
		Registry:          registry,
		Capabilities:      capabilities,
	})

	// Create HTTP server. Crop ranking waits on weather, market and model
	// calls, so the write timeout is longer than the upstream timeouts.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// defaultWeather returns the fallback features, or nil when the policy is off.
func defaultWeather(d config.DefaultWeather) *weather.Features {
	if !d.Enabled {
		return nil
	}
	return &weather.Features{
		Temperature: d.Temperature,
		Humidity:    d.Humidity,
		Rainfall:    d.Rainfall,
		RainDays:    d.RainDays,
	}
}
