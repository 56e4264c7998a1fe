// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tally/internal/adapters/cache"
	"github.com/okian/tally/internal/adapters/identity"
	"github.com/okian/tally/internal/adapters/notifier"
	"github.com/okian/tally/internal/adapters/store"
	"github.com/okian/tally/internal/domain/catalog"
	"github.com/okian/tally/internal/domain/engine"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Store backends selectable via configuration.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Service implements the API dependencies for the score ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    store.Store
	resolver identity.Resolver
	cache    *cache.SnapshotCache
	notifier *notifier.Notifier
	engine   *engine.Engine

	// Configuration
	topN           int
	cacheTTL       time.Duration
	notifierBuffer int
	actions        map[string]int64
	storeBackend   string
	storeDSN       string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTopN sets how many entries the leaderboard view carries.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithCacheTTL bounds how stale a cached leaderboard may get.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithNotifierBuffer sets the per-subscriber notification buffer size.
func WithNotifierBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.notifierBuffer = size
		}
	}
}

// WithActions sets the action kind to point value mapping.
func WithActions(actions map[string]int64) Option {
	return func(s *Service) {
		if len(actions) > 0 {
			s.actions = actions
		}
	}
}

// WithStoreBackend selects the event store implementation.
func WithStoreBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
	}
}

// WithStoreDSN sets the postgres connection string.
func WithStoreDSN(dsn string) Option {
	return func(s *Service) {
		s.storeDSN = dsn
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topN:           10,
		cacheTTL:       5 * time.Minute,
		notifierBuffer: 16,
		storeBackend:   BackendMemory,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting score ranking service...")

	switch s.storeBackend {
	case BackendMemory:
		s.store = store.NewMemoryStore()
		// Without a user directory every id resolves to itself.
		s.resolver = identity.NewMemoryResolver(identity.WithEcho())
		s.logger.Info(ctx, "using in-memory store")
	case BackendPostgres:
		gs, err := store.NewGormStore(ctx, s.storeDSN)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = gs
		s.resolver = identity.NewGormResolver(gs.DB())
		s.logger.Info(ctx, "using postgres store")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, s.storeBackend)
	}

	s.cache = cache.New(cache.WithTTL(s.cacheTTL))
	s.notifier = notifier.New(notifier.WithBufferSize(s.notifierBuffer))

	var catalogOpts []catalog.Option
	if len(s.actions) > 0 {
		catalogOpts = append(catalogOpts, catalog.WithActions(s.actions))
	}

	s.engine = engine.New(
		s.store,
		catalog.New(catalogOpts...),
		s.cache,
		s.resolver,
		s.notifier,
		engine.WithTopN(s.topN),
		engine.WithLogger(s.logger),
	)

	s.started = true
	s.logger.Info(ctx, "score ranking service started",
		logger.String("backend", s.storeBackend),
		logger.Int("topN", s.topN),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("notifierBuffer", s.notifierBuffer),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping score ranking service...")

	// Drop all stream subscribers first so no publish races the store close.
	if s.notifier != nil {
		s.notifier.Close()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "score ranking service stopped")
}

// ApplyEvent records one scoring action; replays succeed with delta 0.
func (s *Service) ApplyEvent(ctx context.Context, userID, eventID, actionKind string) (engine.ApplyResult, error) {
	return s.engine.ApplyEvent(ctx, userID, eventID, actionKind)
}

// TopN returns the leaderboard view and whether it came from cache.
func (s *Service) TopN(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	return s.engine.TopN(ctx)
}

// UserScoreAndRank returns the live score and rank for one user.
func (s *Service) UserScoreAndRank(ctx context.Context, userID string) (int64, int, error) {
	return s.engine.UserScoreAndRank(ctx, userID)
}

// Subscribe attaches a live change subscriber.
func (s *Service) Subscribe(ctx context.Context) *notifier.Subscription {
	return s.notifier.Subscribe(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"backend":        s.storeBackend,
		"topN":           s.topN,
		"cacheTTL":       s.cacheTTL.String(),
		"notifierBuffer": s.notifierBuffer,
	}

	if s.started {
		subscribers := s.notifier.SubscriberCount()
		stats["subscribers"] = subscribers
		metrics.UpdateNotifierSubscribers(subscribers)

		if sums, err := s.store.SumsByUser(context.Background()); err == nil {
			stats["trackedUsers"] = len(sums)
			metrics.UpdateTrackedUsers(len(sums))
		}
	}

	return stats
}
