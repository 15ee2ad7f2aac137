package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vinayak1844/Statathon-Project/cmd/nss-api/handlers"
	"github.com/Vinayak1844/Statathon-Project/cmd/nss-api/middleware"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

// RouterConfig holds HTTP layer settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	MetricsEnabled bool
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg RouterConfig, service handlers.Service) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to the Statathon Project!"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"nss-api"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				logger.Warn().Err(err).Msg("Readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	surveyHandler := handlers.NewSurveyHandler(logger, service)

	r.Get("/api/filter", surveyHandler.Filter)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", surveyHandler.Chat)
		r.Get("/{userID}/history", surveyHandler.History)
		r.Delete("/{userID}", surveyHandler.Forget)
	})

	return r
}
