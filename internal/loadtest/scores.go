package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// retrieveUserScores fetches the live score for every user concurrently.
func retrieveUserScores(ctx context.Context, config *Config, expected map[string]int64, stats *Stats) (map[string]UserScore, error) {
	userIDs := make([]string, 0, len(expected))
	for userID := range expected {
		userIDs = append(userIDs, userID)
	}

	log.Printf("retrieving scores for %d users with %d workers...", len(userIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		mu        sync.Mutex
		scores    = make(map[string]UserScore, len(userIDs))
		retrieved int64
		failed    int64
	)

	userChan := make(chan string, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for userID := range userChan {
				select {
				case <-ctx.Done():
					return
				default:
					score, err := retrieveSingleScore(ctx, client, config.BaseURL, userID)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get score for %s: %v", userID, err)
						}
						continue
					}
					mu.Lock()
					scores[userID] = score
					mu.Unlock()
					atomic.AddInt64(&retrieved, 1)
				}
			}
		}()
	}

	go func() {
		defer close(userChan)
		for _, userID := range userIDs {
			select {
			case <-ctx.Done():
				return
			case userChan <- userID:
			}
		}
	}()

	wg.Wait()

	stats.ScoresRetrieved = len(scores)
	log.Printf("score retrieval completed: retrieved=%d failed=%d",
		int(atomic.LoadInt64(&retrieved)), int(atomic.LoadInt64(&failed)))

	return scores, nil
}

// retrieveSingleScore fetches the score and rank for one user.
func retrieveSingleScore(ctx context.Context, client *HTTPClient, baseURL, userID string) (UserScore, error) {
	url := fmt.Sprintf("%s/scores/users/%s", baseURL, userID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return UserScore{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return UserScore{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return UserScore{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var score UserScore
	if err := json.Unmarshal(body, &score); err != nil {
		return UserScore{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return score, nil
}

// getLeaderboard retrieves the top-N leaderboard view.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) (*TopResponse, error) {
	log.Printf("getting leaderboard...")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/scores/top"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var board TopResponse
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.BoardEntries = len(board.Entries)
	log.Printf("retrieved %d leaderboard entries (from_cache=%v)", len(board.Entries), board.FromCache)

	return &board, nil
}
