package loadtest

import (
	"fmt"
	"log"
)

// verifyResults checks every user's final score against the locally computed
// sum and the leaderboard against the individual queries.
func verifyResults(config *Config, expected map[string]int64, scores map[string]UserScore, board *TopResponse, stats *Stats) error {
	log.Println("verifying results...")

	if len(scores) == 0 {
		return fmt.Errorf("no scores to verify")
	}

	// Every score must equal the exact sum of the user's submitted events.
	// Replays must not have inflated anything.
	mismatches := 0
	for userID, want := range expected {
		got, ok := scores[userID]
		if !ok {
			continue // retrieval failed, already counted
		}
		if got.Score != want {
			mismatches++
			if config.Verbose {
				log.Printf("score mismatch for %s: got %d, want %d", userID, got.Score, want)
			}
		}
	}
	stats.ScoreMismatches = mismatches
	if mismatches > 0 {
		return fmt.Errorf("%d of %d users have a score that differs from the event sum", mismatches, len(scores))
	}
	log.Printf("all %d retrieved scores match the submitted event sums", len(scores))

	if board != nil && len(board.Entries) > 0 {
		if err := verifyBoardConsistency(board, scores); err != nil {
			return fmt.Errorf("leaderboard consistency: %w", err)
		}
		log.Println("leaderboard consistency verified")
	}

	log.Println("result verification completed")
	return nil
}

// verifyBoardConsistency checks ordering and agreement with single-user reads.
func verifyBoardConsistency(board *TopResponse, scores map[string]UserScore) error {
	entries := board.Entries

	for i := 1; i < len(entries); i++ {
		if entries[i].Score > entries[i-1].Score {
			return fmt.Errorf("board not sorted: entry %d outranks entry %d", i, i-1)
		}
		if entries[i].Rank != entries[i-1].Rank+1 {
			return fmt.Errorf("board ranks not dense at entry %d", i)
		}
	}

	// Board entries must agree with the live single-user queries.
	for _, entry := range entries {
		live, ok := scores[entry.UserID]
		if !ok {
			continue
		}
		if live.Score != entry.Score {
			return fmt.Errorf("user %s: board score %d differs from live score %d",
				entry.UserID, entry.Score, live.Score)
		}
		if live.Rank != entry.Rank {
			return fmt.Errorf("user %s: board rank %d differs from live rank %d",
				entry.UserID, entry.Rank, live.Rank)
		}
	}

	return nil
}

// displayTopPerformers shows the head of the leaderboard.
func displayTopPerformers(board *TopResponse) {
	if board == nil || len(board.Entries) == 0 {
		return
	}

	log.Printf("top %d performers:", len(board.Entries))
	for _, entry := range board.Entries {
		log.Printf("   %d. %s - score: %d", entry.Rank, entry.DisplayName, entry.Score)
	}
}
