package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/rank"
)

// MemoryStore implements Store in process memory. It keeps the full event
// log and computes sums on read, mirroring the durable implementation's
// semantics. Used for tests and the "memory" dev backend.
type MemoryStore struct {
	mu        sync.RWMutex
	processed map[string]claimMark          // eventID -> claim
	events    map[string][]model.ScoreEvent // userID -> log
}

type claimMark struct {
	userID      string
	processedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processed: make(map[string]claimMark),
		events:    make(map[string][]model.ScoreEvent),
	}
}

// RecordEvent appends event and claims its id under one lock acquisition,
// the in-memory analogue of the durable transaction.
func (s *MemoryStore) RecordEvent(ctx context.Context, event model.ScoreEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processed[event.EventID]; exists {
		return fmt.Errorf("record event %s: %w", event.EventID, ErrDuplicateEvent)
	}

	s.processed[event.EventID] = claimMark{
		userID:      event.UserID,
		processedAt: time.Now().UTC(),
	}
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

// AlreadyProcessed reports whether an event id has been claimed.
func (s *MemoryStore) AlreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.processed[eventID]
	return exists, nil
}

// SumForUser returns the user's cumulative score and last event time.
func (s *MemoryStore) SumForUser(ctx context.Context, userID string) (model.UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sumLog(userID, s.events[userID]), nil
}

// SumsByUser aggregates every user's cumulative score, best first.
func (s *MemoryStore) SumsByUser(ctx context.Context) ([]model.UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make([]model.UserScore, 0, len(s.events))
	for userID, log := range s.events {
		sums = append(sums, sumLog(userID, log))
	}
	rank.Sort(sums)
	return sums, nil
}

// EventCount returns the number of recorded events for eventID (0 or 1);
// tests use it to assert exactly-once recording.
func (s *MemoryStore) EventCount(ctx context.Context, eventID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, log := range s.events {
		for _, e := range log {
			if e.EventID == eventID {
				count++
			}
		}
	}
	return count
}

// Close implements Store; the memory store holds no external resources.
func (s *MemoryStore) Close() error { return nil }

func sumLog(userID string, log []model.ScoreEvent) model.UserScore {
	sum := model.UserScore{UserID: userID}
	for _, e := range log {
		sum.Score += e.PointsAwarded
		if e.OccurredAt.After(sum.LastEventAt) {
			sum.LastEventAt = e.OccurredAt
		}
	}
	return sum
}
