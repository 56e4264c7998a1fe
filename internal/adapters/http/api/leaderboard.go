// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	TopN(ctx context.Context) ([]model.LeaderboardEntry, bool, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetTop handles GET /scores/top requests.
func (h *LeaderboardHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	entries, fromCache, err := h.deps.TopN(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := topResponse{
		Entries:   make([]types.Entry, len(entries)),
		FromCache: fromCache,
	}
	for i, e := range entries {
		resp.Entries[i] = types.Entry{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Score:       e.Score,
		}
	}
	if len(entries) > 0 {
		resp.AsOf = entries[0].AsOf
	}
	writeJSON(w, http.StatusOK, resp)
}
