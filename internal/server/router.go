package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/homestay/internal/server/handlers"
	"github.com/agentstation/homestay/internal/server/middleware"
	"github.com/agentstation/homestay/internal/server/response"
	"github.com/agentstation/homestay/pkg/export"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()
	s.applyMiddleware(r)

	h := handlers.New(
		s.svc,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
		s.config.PathPrefix,
	)
	s.registerRoutes(r, h)
	return r
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, "Not found", req.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.MethodNotAllowed(w, req.Method)
	})

	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Dashboard and downloads
	r.Get("/", h.HandleDashboard)
	r.Get("/report.csv", h.HandleDownload(export.FormatCSV))
	r.Get("/report.xlsx", h.HandleDownload(export.FormatXLSX))

	// Public health endpoints
	r.Get("/health", h.HandleHealth)

	r.Route(s.config.PathPrefix, func(api chi.Router) {
		api.Get("/health", h.HandleHealth)
		api.Get("/ready", h.HandleReady)

		api.Get("/report", h.HandleReport)
		api.Get("/districts", h.HandleDistricts)
		api.With(middleware.RequireKey(middleware.KeyConfig{
			Key:        s.config.RefreshKey,
			HeaderName: s.config.KeyHeader,
		}, s.logger)).Post("/refresh", h.HandleRefresh)

		api.Get("/updates/ws", h.HandleWebSocket)
		api.Get("/updates/stream", h.HandleSSE)
	})

	if s.config.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// applyMiddleware installs the middleware stack, outermost first.
func (s *Server) applyMiddleware(r chi.Router) {
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))

	if s.config.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(s.config.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = s.config.CORSOrigins
		}
		r.Use(middleware.CORS(corsConfig))
	}

	if s.rateLimiter != nil {
		r.Use(middleware.RateLimit(s.rateLimiter))
	}
}
