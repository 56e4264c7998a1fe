// Package types contains common JSON-facing types used across the application.
package types

// Entry represents a leaderboard entry.
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
}

// ApplyResult is the outcome of applying a scoring event. A replayed event
// reports the current score as both previous and new, with a zero delta.
type ApplyResult struct {
	PreviousScore int64 `json:"previous_score"`
	NewScore      int64 `json:"new_score"`
	Delta         int64 `json:"delta"`
	Rank          int   `json:"rank"`
	Replayed      bool  `json:"replayed"`
}

// UserScore is the live score-and-rank view for a single user.
type UserScore struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Rank   int    `json:"rank"`
}

// ScoreChange mirrors the live stream payload, one per accepted event.
type ScoreChange struct {
	UserID   string `json:"user_id"`
	NewScore int64  `json:"new_score"`
	Delta    int64  `json:"delta"`
	Rank     int    `json:"rank"`
}
