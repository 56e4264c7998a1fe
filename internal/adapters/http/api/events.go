// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/tally/internal/domain/engine"
	"github.com/okian/tally/internal/domain/types"
)

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	ApplyEvent(ctx context.Context, userID, eventID, actionKind string) (engine.ApplyResult, error)
}

// EventsHandler handles scoring event submissions.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /scores/events requests. A replayed event id
// is a success with delta 0, indistinguishable from the first call's
// result, so client retries are always safe.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, ErrBadRequest))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.ApplyEvent(r.Context(), req.UserID, req.EventID, req.ActionKind)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.ApplyResult{
		PreviousScore: res.PreviousScore,
		NewScore:      res.NewScore,
		Delta:         res.Delta,
		Rank:          res.Rank,
		Replayed:      res.Replayed,
	})
}
