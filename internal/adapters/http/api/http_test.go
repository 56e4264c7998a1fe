package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/http/api"
	"github.com/okian/tally/internal/adapters/notifier"
	"github.com/okian/tally/internal/domain/engine"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies backs the handlers with canned answers.
type mockDependencies struct {
	applyResult engine.ApplyResult
	applyErr    error
	applied     []string // event ids seen

	topEntries []model.LeaderboardEntry
	fromCache  bool
	topErr     error

	score   int64
	rank    int
	userErr error

	notifier *notifier.Notifier
}

func (m *mockDependencies) ApplyEvent(ctx context.Context, userID, eventID, actionKind string) (engine.ApplyResult, error) {
	m.applied = append(m.applied, eventID)
	return m.applyResult, m.applyErr
}

func (m *mockDependencies) TopN(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	return m.topEntries, m.fromCache, m.topErr
}

func (m *mockDependencies) UserScoreAndRank(ctx context.Context, userID string) (int64, int, error) {
	return m.score, m.rank, m.userErr
}

func (m *mockDependencies) Subscribe(ctx context.Context) *notifier.Subscription {
	return m.notifier.Subscribe(ctx)
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	if deps.notifier == nil {
		deps.notifier = notifier.New()
	}
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func TestEventsEndpoint(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		deps := &mockDependencies{
			applyResult: engine.ApplyResult{PreviousScore: 0, NewScore: 50, Delta: 50, Rank: 1},
		}
		mux := newMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/scores/events", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When posting a valid event", func() {
			w := post(`{"event_id":"e1","user_id":"alice","action_kind":"quest_complete"}`)

			Convey("Then it returns the apply result", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res struct {
					NewScore int64 `json:"new_score"`
					Delta    int64 `json:"delta"`
					Rank     int   `json:"rank"`
					Replayed bool  `json:"replayed"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.NewScore, ShouldEqual, 50)
				So(res.Delta, ShouldEqual, 50)
				So(res.Rank, ShouldEqual, 1)
				So(res.Replayed, ShouldBeFalse)
				So(deps.applied, ShouldResemble, []string{"e1"})
			})
		})

		Convey("When posting a replayed event", func() {
			deps.applyResult = engine.ApplyResult{PreviousScore: 50, NewScore: 50, Delta: 0, Rank: 1, Replayed: true}
			w := post(`{"event_id":"e1","user_id":"alice","action_kind":"quest_complete"}`)

			Convey("Then it still succeeds with delta 0", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"delta":0`)
				So(w.Body.String(), ShouldContainSubstring, `"replayed":true`)
			})
		})

		Convey("When posting garbage", func() {
			w := post(`{nope`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a required field is missing", func() {
			w := post(`{"event_id":"e1","user_id":"alice"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "missing action_kind")
		})

		Convey("When the action kind is unknown", func() {
			deps.applyErr = engine.ErrUnknownAction
			w := post(`{"event_id":"e1","user_id":"alice","action_kind":"speedrun"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "unknown_action")
		})

		Convey("When the store is down", func() {
			deps.applyErr = engine.ErrStoreUnavailable
			w := post(`{"event_id":"e1","user_id":"alice","action_kind":"quest_complete"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the method is wrong", func() {
			req := httptest.NewRequest(http.MethodGet, "/scores/events", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestTopEndpoint(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		asOf := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		deps := &mockDependencies{
			topEntries: []model.LeaderboardEntry{
				{Rank: 1, UserID: "bob", DisplayName: "Bob", Score: 200, AsOf: asOf},
				{Rank: 2, UserID: "alice", DisplayName: "Alice", Score: 150, AsOf: asOf},
			},
			fromCache: true,
		}
		mux := newMux(deps)

		Convey("When fetching the board", func() {
			req := httptest.NewRequest(http.MethodGet, "/scores/top", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the entries and cache flag come back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res struct {
					Entries []struct {
						Rank   int    `json:"rank"`
						UserID string `json:"user_id"`
						Score  int64  `json:"score"`
					} `json:"entries"`
					FromCache bool `json:"from_cache"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(len(res.Entries), ShouldEqual, 2)
				So(res.Entries[0].UserID, ShouldEqual, "bob")
				So(res.FromCache, ShouldBeTrue)
			})
		})

		Convey("When the store is down and the cache empty", func() {
			deps.topErr = engine.ErrStoreUnavailable
			req := httptest.NewRequest(http.MethodGet, "/scores/top", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestUserEndpoint(t *testing.T) {
	Convey("Given the user score endpoint", t, func() {
		deps := &mockDependencies{score: 75, rank: 3}
		mux := newMux(deps)

		get := func(path string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When fetching a known user", func() {
			w := get("/scores/users/alice")

			Convey("Then score and rank come back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"score":75`)
				So(w.Body.String(), ShouldContainSubstring, `"rank":3`)
			})
		})

		Convey("When the user is unknown", func() {
			deps.userErr = engine.ErrUserNotFound
			w := get("/scores/users/ghost")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "user_not_found")
		})

		Convey("When the path is malformed", func() {
			So(get("/scores/users/").Code, ShouldEqual, http.StatusBadRequest)
			So(get("/scores/users/a/b").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then healthz serves metrics", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats serves JSON", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "started")
		})

		Convey("Then a plain GET on the stream endpoint is rejected", func() {
			req := httptest.NewRequest(http.MethodGet, "/scores/stream", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			// No upgrade headers: the websocket handshake fails.
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
