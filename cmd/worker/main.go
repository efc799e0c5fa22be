// Package main provides the entrypoint for the AgriMind snapshot worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/agrimind/agrimind/internal/config"
	"github.com/agrimind/agrimind/internal/crop"
	"github.com/agrimind/agrimind/internal/database"
	"github.com/agrimind/agrimind/internal/market"
	"github.com/agrimind/agrimind/internal/market/datagov"
	"github.com/agrimind/agrimind/internal/provider/resilience"
	"github.com/agrimind/agrimind/internal/snapshot"
	"github.com/agrimind/agrimind/internal/telemetry"
	"github.com/agrimind/agrimind/internal/weather"
	"github.com/agrimind/agrimind/internal/weather/openmeteo"
	"github.com/agrimind/agrimind/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "agrimind-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AgriMind worker")

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := telemetry.NewProviderMetrics(otel.Meter("github.com/agrimind/agrimind/provider"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	catalog, err := crop.DefaultCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load crop catalog")
	}

	weatherHTTP := resilience.DefaultClientConfig("open-meteo")
	weatherHTTP.Timeout = cfg.Weather.Timeout
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.Weather.BaseURL,
			HTTPClient: resilience.NewClient(weatherHTTP),
			Logger:     log,
		}),
		Logger:  log,
		Metrics: providerMetrics,
	})

	marketHTTP := resilience.DefaultClientConfig("data-gov-in")
	marketHTTP.Timeout = cfg.Market.Timeout
	marketService := market.NewService(market.ServiceConfig{
		Provider: datagov.NewClient(datagov.ClientConfig{
			APIKey:     cfg.Market.APIKey,
			BaseURL:    cfg.Market.BaseURL,
			ResourceID: cfg.Market.ResourceID,
			HTTPClient: resilience.NewClient(marketHTTP),
			Logger:     log,
		}),
		Logger:      log,
		CushionDays: cfg.Market.CushionDays,
		Metrics:     providerMetrics,
	})

	// Snapshots are only visible to the API when both share Postgres
	var repo snapshot.Repository = snapshot.NewInMemoryRepository()
	if cfg.Database.Enabled {
		pool, dbErr := database.Connect(ctx, cfg.Database)
		if dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to connect to database")
		}
		defer pool.Close()
		if dbErr := database.Migrate(ctx, pool); dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to migrate database")
		}
		repo = snapshot.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("database disabled - snapshots are kept in memory only")
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets:     worker.TargetsFromConfig(cfg.Worker.Targets),
			Concurrency: cfg.Worker.Concurrency,
			Timeout:     cfg.Worker.Timeout,
			HorizonDays: cfg.Weather.HorizonDays,
			WindowDays:  cfg.Market.WindowDays,
		},
		Logger:      log,
		Weather:     weatherService,
		Market:      marketService,
		Crops:       catalog.Labels(),
		Commodities: market.DefaultCommodityMap(),
		Repository:  repo,
	})

	// Worker also exposes health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // best-effort health body
			"status":  "healthy",
			"version": Version,
			"refresh": job.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub triggers are optional; the ticker keeps snapshots fresh without them
	if !cfg.Worker.PubSubDisabled && cfg.Worker.PubSubProject != "" {
		handler, psErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.PubSubProject,
			SubscriptionName: cfg.Worker.PubSubSubName,
			RefreshJob:       job,
			Logger:           log,
		})
		if psErr != nil {
			log.Fatal().Err(psErr).Msg("failed to create pubsub handler")
		}
		defer handler.Close() //nolint:errcheck // shutdown path

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().Msg("pubsub disabled - running on interval only")
	}

	// Start worker loop
	go func() {
		log.Info().Dur("interval", cfg.Worker.Interval).Msg("refresh loop started")
		job.Run(ctx)

		ticker := time.NewTicker(cfg.Worker.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("refresh loop stopped")
				return
			case <-ticker.C:
				job.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
