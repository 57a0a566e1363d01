// Package app provides the application context and dependency management
// for the homestay CLI: configuration, logging, and the lazily built report
// pipeline shared by every command.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agentstation/homestay/internal/cache"
	"github.com/agentstation/homestay/internal/pipeline"
	"github.com/agentstation/homestay/internal/pipeline/metrics"
	"github.com/agentstation/homestay/internal/server/events"
	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/reconciler"
)

// App represents the homestay application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	// Shared by the pipeline (publisher) and the server (subscribers).
	broker   *events.Broker
	registry *prometheus.Registry

	// Pipeline (lazy-initialized, singleton)
	mu      sync.RWMutex
	service *pipeline.Service
	redis   *redis.Client
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the default locations; a --config flag
// reloads it before the command runs.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	app.broker = events.NewBroker(app.logger)
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Out returns where command results are written.
func (a *App) Out() io.Writer {
	return a.out
}

// Service returns the report pipeline, creating it lazily if needed.
// A missing upstream token is reported here, so commands that never
// fetch (version) run without one.
func (a *App) Service(ctx context.Context) (*pipeline.Service, error) {
	a.mu.RLock()
	if a.service != nil {
		svc := a.service
		a.mu.RUnlock()
		return svc, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.service != nil {
		return a.service, nil
	}

	if err := a.config.RequireToken(); err != nil {
		return nil, err
	}
	policy, err := reconciler.ParseMissingFieldPolicy(a.config.MissingFields)
	if err != nil {
		return nil, errors.NewConfigError("missing_fields", err.Error(), err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(metrics.New(a.registry)),
		pipeline.WithPublisher(pipeline.PublisherFunc(a.broker.PublishTopic)),
	}

	if a.config.RedisURL != "" {
		client, err := cache.Dial(ctx, a.config.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		opts = append(opts, pipeline.WithStore(cache.NewRedis(client, constants.RedisSnapshotKey, a.config.CacheTTL)))
		a.logger.Debug().Msg("Using redis snapshot cache")
	}

	svc, err := pipeline.New(pipeline.Config{
		Token:         a.config.AuthToken,
		Endpoint:      a.config.Endpoint,
		CacheTTL:      a.config.CacheTTL,
		Timeout:       a.config.Timeout,
		Display:       a.config.Display,
		MissingFields: policy,
	}, opts...)
	if err != nil {
		if a.redis != nil {
			_ = a.redis.Close()
			a.redis = nil
		}
		return nil, errors.WrapResource("create", "pipeline", "", err)
	}

	a.service = svc
	return svc, nil
}

// Broker returns the event broker the pipeline publishes into.
func (a *App) Broker() *events.Broker {
	return a.broker
}

// Registry returns the Prometheus registry served on /metrics.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Shutdown releases resources held by the pipeline.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close redis client during shutdown")
			return errors.WrapResource("close", "redis", "", err)
		}
		a.redis = nil
	}
	return nil
}

// reloadConfig re-reads configuration from path, keeping flag values.
func (a *App) reloadConfig(path string) error {
	config, err := LoadConfig(path)
	if err != nil {
		return errors.WrapResource("load", "config", path, err)
	}
	config.UpdateFromFlags(a.config.Verbose, a.config.Quiet, a.config.NoColor, a.config.Format, a.config.LogLevel)
	a.config = config
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput redirects command results (tests).
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
