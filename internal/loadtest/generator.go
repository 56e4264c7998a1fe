package loadtest

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/tally/pkg/logger"
)

// Constants for random selection.
const (
	actionTypeDivisor = 10
)

// Action kinds matching the service's default catalog, with a distribution
// biased towards the cheap frequent action. Draws above the achievement
// band fall through to quest_complete.
const (
	caseDailyLoginUpper  = 5 // 0-5: daily_login, most common
	caseAchievementUpper = 8 // 6-8: achievement
)

// actionPoints mirrors the service's default catalog so expected sums can be
// computed locally without another round trip.
var actionPoints = map[string]int64{
	"daily_login":    5,
	"achievement":    25,
	"quest_complete": 50,
}

// randomInt returns a random int in [0, max) using crypto/rand.
func randomInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// generateEvents creates events spread over a bounded user population and
// returns them together with the expected final score per user.
func generateEvents(ctx context.Context, config *Config, stats *Stats) ([]Event, map[string]int64, error) {
	logger.Get().Info(ctx, "generating events",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("numUsers", config.NumUsers))

	// Pre-allocate the user population
	userIDs := make([]string, config.NumUsers)
	for i := range userIDs {
		userIDs[i] = "user-" + uuid.New().String()
	}

	events := make([]Event, config.NumEvents)
	expected := make(map[string]int64, config.NumUsers)

	for i := range events {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		userID := userIDs[randomInt(int64(config.NumUsers))]
		kind := pickActionKind()

		events[i] = Event{
			EventID:    uuid.New().String(),
			UserID:     userID,
			ActionKind: kind,
		}
		expected[userID] += actionPoints[kind]
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))

	return events, expected, nil
}

// pickActionKind draws one action kind with the configured distribution.
func pickActionKind() string {
	switch n := randomInt(actionTypeDivisor); {
	case n <= caseDailyLoginUpper:
		return "daily_login"
	case n <= caseAchievementUpper:
		return "achievement"
	default:
		return "quest_complete"
	}
}
