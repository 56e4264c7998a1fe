// Package store provides durable access to the append-only event log and
// the idempotency ledger.
//
// The store is the single source of truth and the only place writes are
// serialized. RecordEvent claims the event id and appends the event inside
// one transaction; a replayed id surfaces as ErrDuplicateEvent from that
// one atomic operation, never from a separate check-then-insert pair.
package store

import (
	"context"

	"github.com/okian/tally/internal/domain/model"
)

// Store provides read/write access to the scoring event log.
type Store interface {
	// RecordEvent appends event and claims its id atomically.
	// Returns ErrDuplicateEvent when the id was already claimed.
	RecordEvent(ctx context.Context, event model.ScoreEvent) error

	// AlreadyProcessed reports whether an event id has been claimed.
	// It is a cheap read used to short-circuit obvious replays; RecordEvent
	// remains the authoritative gate under concurrency.
	AlreadyProcessed(ctx context.Context, eventID string) (bool, error)

	// SumForUser returns the user's cumulative score and last event time.
	// A user with no events sums to zero.
	SumForUser(ctx context.Context, userID string) (model.UserScore, error)

	// SumsByUser aggregates every user's cumulative score, best first.
	SumsByUser(ctx context.Context) ([]model.UserScore, error)

	// Close releases underlying resources.
	Close() error
}
