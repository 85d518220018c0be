// Package router assembles the HTTP surface of the scheduling service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicdesk-ai/clinicdesk/internal/http/handlers"
	httpmiddleware "github.com/clinicdesk-ai/clinicdesk/internal/http/middleware"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	FindAppointments *handlers.FindAppointmentsHandler
	ToolAuthSecret   string
	RateLimitRPS     float64
	RateLimitBurst   int
	MetricsHandler   http.Handler
}

// New creates a chi router with all routes configured. Tool endpoints sit
// behind JWT auth and a rate limit; health and metrics stay open for probes
// and scrapers.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1/tools", func(tools chi.Router) {
		tools.Use(httpmiddleware.ToolJWT(cfg.ToolAuthSecret))
		if cfg.RateLimitRPS > 0 {
			tools.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		if cfg.FindAppointments != nil {
			tools.Post("/find_appointments", cfg.FindAppointments.Handle)
		}
	})

	return r
}
