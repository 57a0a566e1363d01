// Package pipeline runs the report flow: look up the cached snapshot, and on
// a miss fetch from upstream, validate, count both datasets, reconcile, and
// cache the result. Concurrent misses share one fetch; a refresh never joins
// a lookup's fetch.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/homestay/internal/cache"
	"github.com/agentstation/homestay/internal/pipeline/metrics"
	"github.com/agentstation/homestay/internal/sources/homestayapi"
	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
	"github.com/agentstation/homestay/pkg/logging"
	"github.com/agentstation/homestay/pkg/reconciler"
)

// Pipeline event topics.
const (
	// EventReportRefreshed is published after every fresh computation.
	EventReportRefreshed = "report.refreshed"
	// EventRefreshFailed is published when a fetch or reconciliation fails.
	EventRefreshFailed = "report.refresh_failed"
)

// Fetcher retrieves one validated upstream payload.
type Fetcher interface {
	Fetch(ctx context.Context) (*homestay.Payload, error)
}

// Publisher receives pipeline events.
type Publisher interface {
	Publish(topic string, data any)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(topic string, data any)

// Publish implements Publisher.
func (f PublisherFunc) Publish(topic string, data any) { f(topic, data) }

// Config holds everything the pipeline needs. Nothing is read from the
// environment.
type Config struct {
	Token    string
	Endpoint string
	CacheTTL time.Duration
	Timeout  time.Duration
	Display  display.Options

	// MissingFields decides how records without key fields are treated.
	MissingFields reconciler.MissingFieldPolicy
}

// Service serves reconciled reports.
type Service struct {
	fetcher   Fetcher
	store     cache.Store
	display   display.Options
	keys      reconciler.KeyFields
	policy    reconciler.MissingFieldPolicy
	metrics   *metrics.Metrics
	publisher Publisher
	logger    *zerolog.Logger
	now       func() time.Time
	group     singleflight.Group

	// Computations are numbered as they start. One that started before
	// the cached snapshot's computation is returned but not cached.
	started   atomic.Uint64
	storeMu   sync.Mutex
	storedSeq uint64
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher replaces the upstream client.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithStore replaces the in-memory snapshot cache.
func WithStore(store cache.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher sends refresh events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service. Without WithFetcher the upstream client is built
// from cfg, which requires a token.
func New(cfg Config, opts ...Option) (*Service, error) {
	disp, err := cfg.Display.Normalize()
	if err != nil {
		return nil, err
	}

	s := &Service{
		display: disp,
		keys:    reconciler.DefaultKeyFields(),
		policy:  cfg.MissingFields,
		logger:  logging.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		client, err := homestayapi.New(homestayapi.Config{
			Endpoint: cfg.Endpoint,
			Token:    cfg.Token,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		s.fetcher = client
	}
	if s.store == nil {
		s.store = cache.NewMemory(cfg.CacheTTL)
	}
	return s, nil
}

// Display returns the normalized presentation options.
func (s *Service) Display() display.Options {
	return s.display
}

// Store returns the snapshot cache.
func (s *Service) Store() cache.Store {
	return s.store
}

// Report returns the current snapshot, computing it on a cache miss.
func (s *Service) Report(ctx context.Context) (*homestay.Snapshot, error) {
	snap, _, err := s.Lookup(ctx)
	return snap, err
}

// Lookup is Report that also says whether the snapshot came from cache.
func (s *Service) Lookup(ctx context.Context) (snap *homestay.Snapshot, cached bool, err error) {
	if snap, ok := s.Cached(ctx); ok {
		s.metrics.CacheHit()
		return snap, true, nil
	}
	s.metrics.CacheMiss()

	snap, err = s.computeShared(ctx, "report")
	return snap, false, err
}

// Cached returns the cached snapshot without fetching. Cache read errors
// count as a miss.
func (s *Service) Cached(ctx context.Context) (*homestay.Snapshot, bool) {
	snap, ok, err := s.store.Get(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("backend", s.store.Backend()).Msg("Snapshot cache read failed")
		return nil, false
	}
	return snap, ok && snap != nil
}

// Refresh drops the cached snapshot and computes a new one. It never joins
// a lookup fetch already in flight; concurrent refreshes share one fetch.
func (s *Service) Refresh(ctx context.Context) (*homestay.Snapshot, error) {
	if err := s.store.Clear(ctx); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Snapshot cache clear failed")
	}
	return s.computeShared(ctx, "refresh")
}

// computeShared collapses concurrent computations under key into one. The
// shared computation is detached from any single caller's cancellation.
func (s *Service) computeShared(ctx context.Context, key string) (*homestay.Snapshot, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), s.started.Add(1))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*homestay.Snapshot), nil
	}
}

func (s *Service) compute(ctx context.Context, seq uint64) (*homestay.Snapshot, error) {
	ctx = logging.WithLogger(ctx, s.logger)
	ctx = logging.WithOperation(ctx, "report")
	logger := logging.FromContext(ctx)

	start := s.now()
	payload, err := s.fetcher.Fetch(ctx)
	elapsed := s.now().Sub(start)
	if err != nil {
		outcome := metrics.OutcomeFetchError
		if errors.IsInvalidResponse(err) {
			outcome = metrics.OutcomeInvalidResponse
		}
		s.metrics.ObserveFetch(outcome, elapsed)
		logger.Error().Err(err).Dur("duration", elapsed).Msg("Upstream fetch failed")
		s.publishFailure(err)
		return nil, err
	}

	for _, ds := range homestay.Datasets {
		logging.FromContext(logging.WithDataset(ctx, ds.String())).Debug().
			Int("records", len(payload.Records(ds))).
			Msg("Records received")
	}

	table, err := reconciler.FromPayload(payload, s.keys, s.policy,
		reconciler.WithRemoveZeroRows(s.display.RemoveZeroRows))
	if err != nil {
		s.metrics.ObserveFetch(metrics.OutcomeMalformed, elapsed)
		logger.Error().Err(err).Msg("Reconciliation failed")
		s.publishFailure(err)
		return nil, err
	}
	s.metrics.ObserveFetch(metrics.OutcomeSuccess, elapsed)

	snap := &homestay.Snapshot{
		Payload:   payload,
		Table:     table,
		FetchedAt: s.now(),
	}
	s.storeSnapshot(ctx, seq, snap)
	s.metrics.ReportRefreshed(len(table.Body()), snap.FetchedAt)

	total := table.Total()
	logger.Info().
		Int("rows", len(table.Body())).
		Int("new", total.New).
		Int("upgradation", total.Upgradation).
		Dur("duration", elapsed).
		Msg("Report refreshed")

	if s.publisher != nil {
		s.publisher.Publish(EventReportRefreshed, map[string]any{
			"fetched_at": snap.FetchedAt,
			"rows":       len(table.Body()),
			"summary":    table.Summary(homestay.ScopeGlobal),
		})
	}
	return snap, nil
}

// storeSnapshot caches snap unless a later-started computation already did.
func (s *Service) storeSnapshot(ctx context.Context, seq uint64, snap *homestay.Snapshot) {
	logger := logging.FromContext(ctx)

	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if seq < s.storedSeq {
		logger.Debug().Uint64("seq", seq).Uint64("stored_seq", s.storedSeq).Msg("Stale snapshot not cached")
		return
	}
	s.storedSeq = seq
	if err := s.store.Set(ctx, snap); err != nil {
		logger.Warn().Err(err).Str("backend", s.store.Backend()).Msg("Snapshot cache write failed")
	}
}

func (s *Service) publishFailure(err error) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(EventRefreshFailed, map[string]any{
		"error": err.Error(),
		"at":    s.now(),
	})
}
