// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/tally/internal/adapters/notifier"
	"github.com/okian/tally/internal/domain/engine"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// ApplyEvent records one scoring action; replays succeed with delta 0.
	ApplyEvent(ctx context.Context, userID, eventID, actionKind string) (engine.ApplyResult, error)

	// TopN returns the leaderboard view and whether it came from cache.
	TopN(ctx context.Context) ([]model.LeaderboardEntry, bool, error)

	// UserScoreAndRank returns the live score and rank for one user.
	UserScoreAndRank(ctx context.Context, userID string) (int64, int, error)

	// Subscribe attaches a live change subscriber.
	Subscribe(ctx context.Context) *notifier.Subscription
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	userHandler        *UserHandler
	streamHandler      *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		userHandler:        NewUserHandler(deps),
		streamHandler:      NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scores/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/scores/top", MetricsMiddleware(s.leaderboardHandler.HandleGetTop, "top"))
	mux.HandleFunc("/scores/users/", MetricsMiddleware(s.userHandler.HandleGetUser, "user"))
	mux.HandleFunc("/scores/stream", s.streamHandler.HandleStream)
}

// eventRequest mirrors the POST /scores/events body.
type eventRequest struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	ActionKind string `json:"action_kind"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(e.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(e.ActionKind) == "":
		return errors.New("missing action_kind")
	}
	return nil
}

type topResponse struct {
	Entries   []types.Entry `json:"entries"`
	AsOf      time.Time     `json:"as_of"`
	FromCache bool          `json:"from_cache"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates engine sentinels to HTTP statuses. Anything
// unrecognized is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "unknown_action", err)
	case errors.Is(err, engine.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err)
	case errors.Is(err, engine.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
