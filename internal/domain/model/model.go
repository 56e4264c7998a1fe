// Package model contains domain models passed between layers.
package model

import "time"

// ScoreEvent is one immutable scoring action in the append-only event log.
// A user's score is always the sum of PointsAwarded over their events;
// there is no separately stored counter.
type ScoreEvent struct {
	EventID       string    // client-supplied, globally unique
	UserID        string    // subject identifier
	ActionKind    string    // catalog key, e.g. "quest_complete"
	PointsAwarded int64     // fixed at write time from the action catalog
	OccurredAt    time.Time // recorded at write time
}

// UserScore is the aggregate of one user's event log. LastEventAt is the
// time of the user's most recent event, i.e. the moment they reached
// their current score, and serves as the ranking tie-break key.
type UserScore struct {
	UserID      string
	Score       int64
	LastEventAt time.Time
}

// LeaderboardEntry is a derived projection over the aggregated log.
// It is never persisted as its own row.
type LeaderboardEntry struct {
	Rank        int
	UserID      string
	DisplayName string
	Score       int64
	AsOf        time.Time
}

// Snapshot is the cached top-N view. CapturedAt is set by the cache when
// the snapshot is stored.
type Snapshot struct {
	Entries    []LeaderboardEntry
	CapturedAt time.Time
}

// ChangeNotification is broadcast to live subscribers after every newly
// recorded event. Replays never produce one.
type ChangeNotification struct {
	UserID   string
	NewScore int64
	Delta    int64
	Rank     int
}
