// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/tally/internal/domain/types"
)

// UserDependencies defines the interface for single-user score queries.
type UserDependencies interface {
	UserScoreAndRank(ctx context.Context, userID string) (int64, int, error)
}

// UserHandler handles single-user score and rank requests.
type UserHandler struct {
	deps UserDependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// HandleGetUser handles GET /scores/users/{user_id} requests.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/scores/users/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	score, rank, err := h.deps.UserScoreAndRank(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.UserScore{
		UserID: userID,
		Score:  score,
		Rank:   rank,
	})
}
