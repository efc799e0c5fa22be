// Package api provides the HTTP API for AgriMind.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/api/handler"
	"github.com/agrimind/agrimind/internal/api/middleware"
	"github.com/agrimind/agrimind/internal/provider/resilience"
	"github.com/agrimind/agrimind/internal/snapshot"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	CropHandler       *handler.CropHandler
	FertilizerHandler *handler.FertilizerHandler
	ChatHandler       *handler.ChatHandler

	// Snapshots backs /v1/market/snapshots. Defaults to an empty in-memory
	// repository.
	Snapshots snapshot.Repository

	// Registry and Capabilities feed the ops endpoints.
	Registry     *resilience.Registry
	Capabilities handler.Capabilities
}

// NewRouter creates a new chi router with all API routes configured.
// Domain handlers left nil are not mounted.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agrimind-api"
	}
	snapshots := cfg.Snapshots
	if snapshots == nil {
		snapshots = snapshot.NewInMemoryRepository()
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Capabilities)
	snapshotHandler := handler.NewSnapshotHandler(snapshots, cfg.Logger)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	chatRateLimit := middleware.RateLimitByIP(middleware.ChatRateLimit)           // 20 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// Farmer-facing endpoints
	if cfg.CropHandler != nil {
		r.With(middleware.Kind(middleware.KindCropRecommendation), expensiveRateLimit).
			Get("/recommend_crop", cfg.CropHandler.RecommendCrop)
	}
	if cfg.FertilizerHandler != nil {
		r.With(middleware.Kind(middleware.KindFertilizerSchedule), standardRateLimit).
			Get("/recommend_fertilizer", cfg.FertilizerHandler.RecommendFertilizer)
		r.With(middleware.Kind(middleware.KindFertilizerProduct), standardRateLimit).
			Get("/recommend_fertilizer_product", cfg.FertilizerHandler.RecommendFertilizerProduct)
	}
	if cfg.ChatHandler != nil {
		r.With(middleware.Kind(middleware.KindChat), chatRateLimit, middleware.RequireJSON).
			Post("/chat", cfg.ChatHandler.Chat)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.Kind(middleware.KindOps))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/market", func(r chi.Router) {
			r.Use(middleware.Kind(middleware.KindMarketSnapshots))
			r.Use(standardRateLimit)
			r.Get("/snapshots", snapshotHandler.ListSnapshots)
		})
	})

	return r
}
