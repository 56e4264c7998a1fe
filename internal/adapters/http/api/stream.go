// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/tally/internal/adapters/notifier"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Stream timing constants.
const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

// StreamDependencies defines the interface for live change subscriptions.
type StreamDependencies interface {
	Subscribe(ctx context.Context) *notifier.Subscription
}

// StreamHandler upgrades requests to WebSocket and relays change
// notifications until the client disconnects.
type StreamHandler struct {
	deps     StreamDependencies
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth and origin policy belong to the fronting layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleStream handles GET /scores/stream requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		metrics.RecordErrorByComponent("http", "upgrade_failed")
		return
	}

	log := logger.Named("stream")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.deps.Subscribe(ctx)
	defer sub.Close()

	// Reader: discard inbound frames, unblock on close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	defer func() { _ = conn.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			err := conn.WriteJSON(types.ScoreChange{
				UserID:   event.UserID,
				NewScore: event.NewScore,
				Delta:    event.Delta,
				Rank:     event.Rank,
			})
			if err != nil {
				log.Debug(ctx, "stream write failed, dropping subscriber", logger.Error(err))
				return
			}
		}
	}
}
