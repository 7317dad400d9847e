// Package http provides the HTTP API for quota enforcement.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/artpar/imgquota/adapters/hasher"
	"github.com/artpar/imgquota/adapters/metrics"
	_ "github.com/artpar/imgquota/docs/swagger" // swagger docs
	"github.com/artpar/imgquota/pkg/jsonapi"
)

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // defaults to promhttp.Handler() when Metrics is set
	ServiceKeys    *hasher.KeyVerifier
	EnableOpenAPI  bool
	RequestTimeout time.Duration // default 30s
	Version        string
}

// NewRouter creates the main HTTP router.
func NewRouter(quotaHandler *QuotaHandler, healthHandler *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/version", VersionHandler(cfg.Version))

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	if cfg.EnableOpenAPI {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(NewServiceKeyMiddleware(cfg.ServiceKeys, cfg.Metrics, logger))

		r.Post("/consume", quotaHandler.Consume)
		r.Get("/usage", quotaHandler.Usage)
		r.Get("/usage/recent", quotaHandler.Recent)
		r.Get("/plans", quotaHandler.Plans)
		r.Get("/window", quotaHandler.Window)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("resource"))
	})

	return r
}
