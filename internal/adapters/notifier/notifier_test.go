package notifier_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/notifier"
	"github.com/okian/tally/internal/domain/model"
)

func change(userID string, score int64) model.ChangeNotification {
	return model.ChangeNotification{UserID: userID, NewScore: score, Delta: score, Rank: 1}
}

func TestNotifier_Fanout(t *testing.T) {
	ctx := context.Background()

	Convey("Given a notifier with two subscribers", t, func() {
		n := notifier.New()
		defer n.Close()

		first := n.Subscribe(ctx)
		second := n.Subscribe(ctx)
		So(n.SubscriberCount(), ShouldEqual, 2)

		Convey("When publishing one notification", func() {
			n.Publish(ctx, change("alice", 50))

			Convey("Then both subscribers receive it", func() {
				So((<-first.Events()).UserID, ShouldEqual, "alice")
				So((<-second.Events()).UserID, ShouldEqual, "alice")
			})
		})

		Convey("When one subscription closes", func() {
			second.Close()

			Convey("Then it is deregistered and its channel closed", func() {
				So(n.SubscriberCount(), ShouldEqual, 1)
				_, open := <-second.Events()
				So(open, ShouldBeFalse)
			})

			Convey("And the survivor keeps receiving", func() {
				n.Publish(ctx, change("bob", 25))
				So((<-first.Events()).UserID, ShouldEqual, "bob")
			})
		})
	})
}

func TestNotifier_SlowSubscriber(t *testing.T) {
	ctx := context.Background()

	Convey("Given a subscriber with a tiny buffer that never drains", t, func() {
		n := notifier.New(notifier.WithBufferSize(2))
		defer n.Close()

		sub := n.Subscribe(ctx)

		Convey("When publishing more than the buffer holds", func() {
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := int64(1); i <= 10; i++ {
					n.Publish(ctx, change("alice", i*10))
				}
			}()

			Convey("Then publish never blocks", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("publish blocked on a slow subscriber")
				}
			})

			Convey("And the subscriber sees the newest events, oldest dropped", func() {
				<-done
				var got []int64
				for {
					select {
					case e := <-sub.Events():
						got = append(got, e.NewScore)
						continue
					default:
					}
					break
				}
				So(len(got), ShouldEqual, 2)
				So(got[len(got)-1], ShouldEqual, 100)
			})
		})
	})
}

func TestNotifier_Close(t *testing.T) {
	ctx := context.Background()

	Convey("Given a closed notifier", t, func() {
		n := notifier.New()
		sub := n.Subscribe(ctx)
		n.Close()

		Convey("Then subscriber channels are closed", func() {
			_, open := <-sub.Events()
			So(open, ShouldBeFalse)
		})

		Convey("Then publish is a no-op", func() {
			So(func() { n.Publish(ctx, change("alice", 1)) }, ShouldNotPanic)
		})

		Convey("Then late subscribers get a closed channel", func() {
			late := n.Subscribe(ctx)
			_, open := <-late.Events()
			So(open, ShouldBeFalse)
		})

		Convey("Then closing twice is safe", func() {
			So(n.Close, ShouldNotPanic)
			So(sub.Close, ShouldNotPanic)
		})
	})
}
