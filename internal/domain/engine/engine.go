// Package engine implements the leaderboard core: idempotent event
// application, the cached top-N view, and live single-user rank queries.
//
// The engine is the single authoritative entry point for score mutation.
// Atomicity of "claim event id + append event" lives at the store
// transaction boundary, so concurrent callers need no application-level
// lock and different users never contend.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tally/internal/adapters/identity"
	"github.com/okian/tally/internal/adapters/store"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/rank"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const defaultTopN = 10

// Catalog answers "how many points is this action worth".
type Catalog interface {
	Points(ctx context.Context, kind string) (int64, bool)
}

// Cache stores and serves the top-N snapshot.
type Cache interface {
	Get(ctx context.Context) (model.Snapshot, bool, error)
	Replace(ctx context.Context, snap model.Snapshot) error
	Invalidate(ctx context.Context) error
}

// Publisher receives a notification for every newly recorded event.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeNotification)
}

// ApplyResult is the outcome of one ApplyEvent call.
type ApplyResult struct {
	PreviousScore int64
	NewScore      int64
	Delta         int64
	Rank          int
	Replayed      bool
}

// Engine coordinates the store, catalog, cache, identity, and notifier.
type Engine struct {
	store     store.Store
	catalog   Catalog
	cache     Cache
	identity  identity.Resolver
	publisher Publisher

	topN   int
	now    func() time.Time
	logger logger.Logger
}

// New constructs an Engine with configuration options.
func New(st store.Store, cat Catalog, ca Cache, id identity.Resolver, pub Publisher, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		catalog:   cat,
		cache:     ca,
		identity:  id,
		publisher: pub,
		topN:      defaultTopN,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Named("engine")
	}

	return e
}

// ApplyEvent records one scoring action for userID under eventID.
//
// A previously processed eventID is a replay: the call returns the current
// score as both previous and new with a zero delta, touches neither the
// store nor the cache, and publishes nothing. Two concurrent calls with the
// same eventID resolve at the store transaction: exactly one records the
// event, the loser observes the replay outcome.
func (e *Engine) ApplyEvent(ctx context.Context, userID, eventID, actionKind string) (ApplyResult, error) {
	const op = "engine.apply_event"

	points, ok := e.catalog.Points(ctx, actionKind)
	if !ok {
		return ApplyResult{}, fmt.Errorf("%s: action %q: %w", op, actionKind, ErrUnknownAction)
	}

	// Cheap replay short-circuit. The transactional claim below remains the
	// authoritative gate; this read only spares replays the write attempt.
	seen, err := e.store.AlreadyProcessed(ctx, eventID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	if seen {
		return e.replayOutcome(ctx, userID)
	}

	previous, err := e.store.SumForUser(ctx, userID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	event := model.ScoreEvent{
		EventID:       eventID,
		UserID:        userID,
		ActionKind:    actionKind,
		PointsAwarded: points,
		OccurredAt:    e.now().UTC(),
	}

	switch err := e.store.RecordEvent(ctx, event); {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateEvent):
		// Lost the race to a concurrent claim of the same id.
		return e.replayOutcome(ctx, userID)
	default:
		return ApplyResult{}, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	if err := e.cache.Invalidate(ctx); err != nil {
		// Cache faults are absorbed: the snapshot will age out via TTL.
		metrics.RecordErrorByComponent("cache", "invalidate_failed")
		e.logger.Warn(ctx, "rank cache invalidation failed", logger.Error(err))
	}

	newScore := previous.Score + points
	userRank, err := e.rankOf(ctx, userID)
	if err != nil {
		// The event is committed; the caller may retry safely, the
		// idempotency guard will answer with the replay outcome.
		return ApplyResult{}, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	e.publisher.Publish(ctx, model.ChangeNotification{
		UserID:   userID,
		NewScore: newScore,
		Delta:    points,
		Rank:     userRank,
	})
	metrics.RecordEventProcessed()

	e.logger.Debug(ctx, "event applied",
		logger.String("userID", userID),
		logger.String("eventID", eventID),
		logger.Int64("delta", points),
		logger.Int("rank", userRank),
	)

	return ApplyResult{
		PreviousScore: previous.Score,
		NewScore:      newScore,
		Delta:         points,
		Rank:          userRank,
	}, nil
}

// TopN returns the leaderboard's best entries and whether they came from
// the cache.
func (e *Engine) TopN(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	const op = "engine.top_n"

	snap, ok, err := e.cache.Get(ctx)
	if err != nil {
		// Degrade to direct aggregation; the cache is never a correctness
		// dependency.
		metrics.RecordErrorByComponent("cache", "get_failed")
		e.logger.Warn(ctx, "rank cache unavailable, aggregating directly", logger.Error(err))
	}
	if ok {
		return snap.Entries, true, nil
	}

	entries, err := e.aggregateTop(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	if err := e.cache.Replace(ctx, model.Snapshot{Entries: entries}); err != nil {
		metrics.RecordErrorByComponent("cache", "replace_failed")
		e.logger.Warn(ctx, "rank cache repopulation failed", logger.Error(err))
	}

	return entries, false, nil
}

// UserScoreAndRank returns the live score and rank for one user. The rank
// comes from the same formula as the top-N view, never from the cache.
func (e *Engine) UserScoreAndRank(ctx context.Context, userID string) (int64, int, error) {
	const op = "engine.user_score_and_rank"

	if _, err := e.identity.DisplayName(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return 0, 0, fmt.Errorf("%s: user %q: %w", op, userID, ErrUserNotFound)
		}
		metrics.RecordErrorByComponent("identity", "lookup_failed")
		return 0, 0, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	sums, err := e.store.SumsByUser(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	var score int64
	for _, s := range sums {
		if s.UserID == userID {
			score = s.Score
			break
		}
	}

	return score, rank.Of(sums, userID), nil
}

// replayOutcome builds the idempotent response for an already processed
// event id. Replays are invisible to subscribers and leave the cache alone.
func (e *Engine) replayOutcome(ctx context.Context, userID string) (ApplyResult, error) {
	const op = "engine.replay"

	sum, err := e.store.SumForUser(ctx, userID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	userRank, err := e.rankOf(ctx, userID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	metrics.RecordEventReplayed()
	return ApplyResult{
		PreviousScore: sum.Score,
		NewScore:      sum.Score,
		Delta:         0,
		Rank:          userRank,
		Replayed:      true,
	}, nil
}

// rankOf computes the user's rank against the full population.
func (e *Engine) rankOf(ctx context.Context, userID string) (int, error) {
	sums, err := e.store.SumsByUser(ctx)
	if err != nil {
		return 0, err
	}
	return rank.Of(sums, userID), nil
}

// aggregateTop recomputes the top-N projection from the event log.
func (e *Engine) aggregateTop(ctx context.Context) ([]model.LeaderboardEntry, error) {
	sums, err := e.store.SumsByUser(ctx)
	if err != nil {
		return nil, err
	}

	top := rank.Top(sums, e.topN)
	asOf := e.now().UTC()
	entries := make([]model.LeaderboardEntry, len(top))
	for i, s := range top {
		name, err := e.identity.DisplayName(ctx, s.UserID)
		if err != nil {
			// Presentation fallback only; identity faults must not fail
			// the leaderboard read.
			name = s.UserID
		}
		entries[i] = model.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      s.UserID,
			DisplayName: name,
			Score:       s.Score,
			AsOf:        asOf,
		}
	}
	return entries, nil
}
