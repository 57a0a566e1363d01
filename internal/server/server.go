// Package server provides the HTTP server for the homestay dashboard and API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/homestay/internal/server/events"
	"github.com/agentstation/homestay/internal/server/events/adapters"
	"github.com/agentstation/homestay/internal/server/handlers"
	"github.com/agentstation/homestay/internal/server/middleware"
	"github.com/agentstation/homestay/internal/server/sse"
	ws "github.com/agentstation/homestay/internal/server/websocket"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/logging"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	svc            handlers.ReportService
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	upgrader       websocket.Upgrader
	gatherer       prometheus.Gatherer
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startOnce      sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithBroker shares an event broker, typically the one the pipeline
// publishes into.
func WithBroker(b *events.Broker) Option {
	return func(s *Server) { s.broker = b }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a server for svc.
func New(svc handlers.ReportService, cfg Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.NewValidationError("service", nil, "report service is required")
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = DefaultConfig().KeyHeader
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		svc:    svc,
		config: cfg,
		logger: logging.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		gatherer: prometheus.DefaultGatherer,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.broker == nil {
		s.broker = events.NewBroker(s.logger)
	}
	s.wsHub = ws.NewHub(s.logger)
	s.sseBroadcaster = sse.NewBroadcaster(s.logger)
	s.broker.Subscribe(adapters.NewWebSocketSubscriber(s.wsHub))
	s.broker.Subscribe(adapters.NewSSESubscriber(s.sseBroadcaster))

	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, s.logger)
	}

	s.logger.Debug().Str("addr", cfg.Addr()).Msg("Server instance created")
	return s, nil
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(3)
		go func() { defer s.wg.Done(); s.broker.Run(s.ctx) }()
		go func() { defer s.wg.Done(); s.wsHub.Run(s.ctx) }()
		go func() { defer s.wg.Done(); s.sseBroadcaster.Run(s.ctx) }()
		s.logger.Debug().Msg("Background services started")
	})
}

// Handler returns the configured http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services and waits for them, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return errors.NewTimeoutError("shutdown", "", ctx.Err().Error())
	}
}

// ListenAndServe serves HTTP until ctx is cancelled, then drains
// connections within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	s.Start()

	httpServer := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", httpServer.Addr).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- errors.WrapResource("listen", "http", httpServer.Addr, err)
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		_ = s.Shutdown(context.Background())
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop streams first so long-lived SSE and websocket requests end.
	bgErr := s.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.WrapResource("shutdown", "http", httpServer.Addr, err)
	}
	s.logger.Info().Msg("Server stopped gracefully")
	return bgErr
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}
