package loadtest

import "time"

// Config holds configuration for the score load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumEvents  int           // Number of events to generate
	NumUsers   int           // Size of the user population
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	ReplayPct  int           // Percentage of events to re-submit as replays
	OutputFile string        // Output file for events
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Event represents a scoring event to be submitted
type Event struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	ActionKind string `json:"action_kind"`
}

// ApplyResult mirrors the response from event submission
type ApplyResult struct {
	PreviousScore int64 `json:"previous_score"`
	NewScore      int64 `json:"new_score"`
	Delta         int64 `json:"delta"`
	Rank          int   `json:"rank"`
	Replayed      bool  `json:"replayed"`
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
}

// TopResponse mirrors the leaderboard endpoint body
type TopResponse struct {
	Entries   []Entry `json:"entries"`
	FromCache bool    `json:"from_cache"`
}

// UserScore mirrors the single-user score endpoint body
type UserScore struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Rank   int    `json:"rank"`
}

// Stats holds test statistics
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsReplayed   int
	EventsFailed     int
	ScoresRetrieved  int
	ScoreMismatches  int
	BoardEntries     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
