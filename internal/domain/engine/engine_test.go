package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/cache"
	"github.com/okian/tally/internal/adapters/identity"
	"github.com/okian/tally/internal/adapters/store"
	"github.com/okian/tally/internal/domain/catalog"
	"github.com/okian/tally/internal/domain/engine"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// capturePublisher records published notifications for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []model.ChangeNotification
}

func (p *capturePublisher) Publish(ctx context.Context, e model.ChangeNotification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) published() []model.ChangeNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ChangeNotification, len(p.events))
	copy(out, p.events)
	return out
}

// failingStore fails every operation; it exercises the unavailability path.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) RecordEvent(ctx context.Context, e model.ScoreEvent) error { return errDown }
func (failingStore) AlreadyProcessed(ctx context.Context, id string) (bool, error) {
	return false, errDown
}
func (failingStore) SumForUser(ctx context.Context, id string) (model.UserScore, error) {
	return model.UserScore{}, errDown
}
func (failingStore) SumsByUser(ctx context.Context) ([]model.UserScore, error) {
	return nil, errDown
}
func (failingStore) Close() error { return nil }

// faultyCache fails every operation; reads must degrade, not fail.
type faultyCache struct{}

func (faultyCache) Get(ctx context.Context) (model.Snapshot, bool, error) {
	return model.Snapshot{}, false, errDown
}
func (faultyCache) Replace(ctx context.Context, s model.Snapshot) error { return errDown }
func (faultyCache) Invalidate(ctx context.Context) error                { return errDown }

type fixture struct {
	engine    *engine.Engine
	store     *store.MemoryStore
	cache     *cache.SnapshotCache
	publisher *capturePublisher
	identity  *identity.MemoryResolver
	now       *time.Time
}

func newFixture(opts ...engine.Option) *fixture {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		store:     store.NewMemoryStore(),
		publisher: &capturePublisher{},
		identity:  identity.NewMemoryResolver(identity.WithEcho()),
		now:       &now,
	}
	clock := func() time.Time { return *f.now }
	f.cache = cache.New(cache.WithTTL(5*time.Minute), cache.WithClock(clock))

	cat := catalog.New(catalog.WithActions(map[string]int64{
		"quest_complete": 50,
		"achievement":    25,
	}))

	opts = append([]engine.Option{engine.WithClock(clock)}, opts...)
	f.engine = engine.New(f.store, cat, f.cache, f.identity, f.publisher, opts...)
	return f
}

func (f *fixture) tick() {
	*f.now = f.now.Add(time.Second)
}

func TestEngine_ApplyEvent(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh engine", t, func() {
		f := newFixture()

		Convey("When user A completes a quest", func() {
			res, err := f.engine.ApplyEvent(ctx, "a", "e1", "quest_complete")

			Convey("Then the score moves from 0 to 50", func() {
				So(err, ShouldBeNil)
				So(res.PreviousScore, ShouldEqual, 0)
				So(res.NewScore, ShouldEqual, 50)
				So(res.Delta, ShouldEqual, 50)
				So(res.Rank, ShouldEqual, 1)
				So(res.Replayed, ShouldBeFalse)
			})

			Convey("And exactly one notification is published", func() {
				events := f.publisher.published()
				So(len(events), ShouldEqual, 1)
				So(events[0], ShouldResemble, model.ChangeNotification{
					UserID: "a", NewScore: 50, Delta: 50, Rank: 1,
				})
			})
		})

		Convey("When user A replays event e1", func() {
			f.tick()
			_, err := f.engine.ApplyEvent(ctx, "a", "e1", "quest_complete")
			So(err, ShouldBeNil)
			f.tick()
			res, err := f.engine.ApplyEvent(ctx, "a", "e1", "quest_complete")

			Convey("Then the replay is a visible no-op", func() {
				So(err, ShouldBeNil)
				So(res.PreviousScore, ShouldEqual, 50)
				So(res.NewScore, ShouldEqual, 50)
				So(res.Delta, ShouldEqual, 0)
				So(res.Replayed, ShouldBeTrue)
			})

			Convey("And the store holds exactly one event for e1", func() {
				So(f.store.EventCount(ctx, "e1"), ShouldEqual, 1)
			})

			Convey("And no second notification reaches subscribers", func() {
				So(len(f.publisher.published()), ShouldEqual, 1)
			})
		})

		Convey("When user A then earns an achievement", func() {
			_, err := f.engine.ApplyEvent(ctx, "a", "e1", "quest_complete")
			So(err, ShouldBeNil)
			f.tick()
			res, err := f.engine.ApplyEvent(ctx, "a", "e2", "achievement")

			Convey("Then the score moves from 50 to 75", func() {
				So(err, ShouldBeNil)
				So(res.PreviousScore, ShouldEqual, 50)
				So(res.NewScore, ShouldEqual, 75)
				So(res.Delta, ShouldEqual, 25)
			})
		})

		Convey("When the action kind is not in the catalog", func() {
			_, err := f.engine.ApplyEvent(ctx, "a", "e9", "speedrun")

			Convey("Then the call fails with UnknownAction and records nothing", func() {
				So(errors.Is(err, engine.ErrUnknownAction), ShouldBeTrue)
				So(f.store.EventCount(ctx, "e9"), ShouldEqual, 0)
				So(len(f.publisher.published()), ShouldEqual, 0)
			})
		})
	})
}

func TestEngine_ScoreIsSumOfLog(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sequence of distinct events for one user", t, func() {
		f := newFixture()

		kinds := []string{"quest_complete", "achievement", "achievement", "quest_complete"}
		var want int64
		for i, kind := range kinds {
			f.tick()
			res, err := f.engine.ApplyEvent(ctx, "a", "ev-"+string(rune('a'+i)), kind)
			So(err, ShouldBeNil)
			if kind == "quest_complete" {
				want += 50
			} else {
				want += 25
			}
			So(res.NewScore, ShouldEqual, want)
		}

		Convey("Then the live view equals the independent aggregation", func() {
			score, userRank, err := f.engine.UserScoreAndRank(ctx, "a")
			So(err, ShouldBeNil)
			So(score, ShouldEqual, want)
			So(userRank, ShouldEqual, 1)

			sum, err := f.store.SumForUser(ctx, "a")
			So(err, ShouldBeNil)
			So(sum.Score, ShouldEqual, score)
		})
	})
}

func TestEngine_ConcurrentSameEvent(t *testing.T) {
	ctx := context.Background()

	Convey("Given concurrent applies of one event id", t, func() {
		f := newFixture()

		const racers = 16
		var wg sync.WaitGroup
		results := make([]engine.ApplyResult, racers)
		errs := make([]error, racers)

		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = f.engine.ApplyEvent(ctx, "a", "contended", "quest_complete")
			}(i)
		}
		wg.Wait()

		Convey("Then every caller succeeds and exactly one recorded the event", func() {
			winners := 0
			for i := range results {
				So(errs[i], ShouldBeNil)
				So(results[i].NewScore, ShouldEqual, 50)
				if !results[i].Replayed {
					winners++
				}
			}
			// Fast-path replay checks may interleave, but the store
			// transaction admits exactly one write.
			So(winners, ShouldBeGreaterThanOrEqualTo, 1)
			So(f.store.EventCount(ctx, "contended"), ShouldEqual, 1)
			So(len(f.publisher.published()), ShouldEqual, winners)
		})
	})
}

func TestEngine_TopN(t *testing.T) {
	ctx := context.Background()

	Convey("Given two users tied at 200 points, B having scored first", t, func() {
		f := newFixture()

		_, err := f.engine.ApplyEvent(ctx, "b", "b1", "quest_complete")
		So(err, ShouldBeNil)
		for _, id := range []string{"b2", "b3", "b4"} {
			f.tick()
			_, err = f.engine.ApplyEvent(ctx, "b", id, "quest_complete")
			So(err, ShouldBeNil)
		}
		for _, id := range []string{"a1", "a2", "a3", "a4"} {
			f.tick()
			_, err = f.engine.ApplyEvent(ctx, "a", id, "quest_complete")
			So(err, ShouldBeNil)
		}

		Convey("When reading the leaderboard", func() {
			entries, fromCache, err := f.engine.TopN(ctx)

			Convey("Then B outranks A on the earlier-achiever tie-break", func() {
				So(err, ShouldBeNil)
				So(fromCache, ShouldBeFalse)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].UserID, ShouldEqual, "b")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].Score, ShouldEqual, 200)
				So(entries[1].UserID, ShouldEqual, "a")
				So(entries[1].Rank, ShouldEqual, 2)
			})

			Convey("And the single-user path agrees with the board", func() {
				_, rankB, err := f.engine.UserScoreAndRank(ctx, "b")
				So(err, ShouldBeNil)
				So(rankB, ShouldEqual, 1)
				_, rankA, err := f.engine.UserScoreAndRank(ctx, "a")
				So(err, ShouldBeNil)
				So(rankA, ShouldEqual, 2)
			})
		})

		Convey("When reading twice within the TTL with no writes", func() {
			first, fromCache, err := f.engine.TopN(ctx)
			So(err, ShouldBeNil)
			So(fromCache, ShouldBeFalse)

			second, fromCache, err := f.engine.TopN(ctx)

			Convey("Then the second read is an identical cache hit", func() {
				So(err, ShouldBeNil)
				So(fromCache, ShouldBeTrue)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When a write lands between reads", func() {
			stale, _, err := f.engine.TopN(ctx)
			So(err, ShouldBeNil)
			So(stale[0].UserID, ShouldEqual, "b")

			f.tick()
			_, err = f.engine.ApplyEvent(ctx, "a", "a5", "achievement")
			So(err, ShouldBeNil)

			fresh, fromCache, err := f.engine.TopN(ctx)

			Convey("Then the next read recomputes and reflects the write", func() {
				So(err, ShouldBeNil)
				So(fromCache, ShouldBeFalse)
				So(fresh[0].UserID, ShouldEqual, "a")
				So(fresh[0].Score, ShouldEqual, 225)
			})
		})
	})

	Convey("Given more users than the configured view size", t, func() {
		f := newFixture(engine.WithTopN(2))

		for _, u := range []string{"a", "b", "c"} {
			f.tick()
			_, err := f.engine.ApplyEvent(ctx, u, u+"-1", "achievement")
			So(err, ShouldBeNil)
		}
		f.tick()
		_, err := f.engine.ApplyEvent(ctx, "c", "c-2", "quest_complete")
		So(err, ShouldBeNil)

		Convey("Then only the top slice is served", func() {
			entries, _, err := f.engine.TopN(ctx)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
			So(entries[0].UserID, ShouldEqual, "c")
		})

		Convey("And a user outside the slice still gets a live rank", func() {
			score, userRank, err := f.engine.UserScoreAndRank(ctx, "b")
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 25)
			So(userRank, ShouldEqual, 3) // "a" reached 25 first and holds rank 2
		})
	})
}

func TestEngine_DisplayNames(t *testing.T) {
	ctx := context.Background()

	Convey("Given a registered and an unregistered scorer", t, func() {
		f := newFixture()
		f.identity.Register("a", "Ada")

		_, err := f.engine.ApplyEvent(ctx, "a", "a1", "quest_complete")
		So(err, ShouldBeNil)

		Convey("Then the board shows the display name", func() {
			entries, _, err := f.engine.TopN(ctx)
			So(err, ShouldBeNil)
			So(entries[0].DisplayName, ShouldEqual, "Ada")
		})
	})

	Convey("Given a strict identity resolver", t, func() {
		f := newFixture()
		strict := identity.NewMemoryResolver()
		eng := engine.New(f.store, catalog.New(), f.cache, strict, f.publisher)

		_, err := f.engine.ApplyEvent(ctx, "a", "a1", "quest_complete")
		So(err, ShouldBeNil)

		Convey("Then unknown users fail single-user queries with UserNotFound", func() {
			_, _, err := eng.UserScoreAndRank(ctx, "ghost")
			So(errors.Is(err, engine.ErrUserNotFound), ShouldBeTrue)
		})

		Convey("Then the board falls back to the user id for display", func() {
			entries, _, err := eng.TopN(ctx)
			So(err, ShouldBeNil)
			So(entries[0].DisplayName, ShouldEqual, "a")
		})
	})
}

func TestEngine_Degradation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that is down", t, func() {
		f := newFixture()
		eng := engine.New(failingStore{}, catalog.New(), f.cache, f.identity, f.publisher)

		Convey("Then ApplyEvent surfaces a retryable store error", func() {
			_, err := eng.ApplyEvent(ctx, "a", "e1", "quest_complete")
			So(errors.Is(err, engine.ErrStoreUnavailable), ShouldBeTrue)
		})

		Convey("Then TopN fails only when both cache and store are empty-handed", func() {
			_, _, err := eng.TopN(ctx)
			So(errors.Is(err, engine.ErrStoreUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a cache that is down", t, func() {
		f := newFixture()
		eng := engine.New(f.store, catalog.New(), faultyCache{}, f.identity, f.publisher)

		_, err := eng.ApplyEvent(ctx, "a", "e1", "quest_complete")
		So(err, ShouldBeNil)

		Convey("Then reads degrade to direct aggregation", func() {
			entries, fromCache, err := eng.TopN(ctx)
			So(err, ShouldBeNil)
			So(fromCache, ShouldBeFalse)
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Score, ShouldEqual, 50)
		})
	})
}
