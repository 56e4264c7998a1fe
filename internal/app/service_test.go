package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithTopN(5),
			service.WithCacheTTL(time.Minute),
			service.WithNotifierBuffer(64),
			service.WithActions(map[string]int64{"quest_complete": 100}),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})
	})

	Convey("Given a service with an unknown backend", t, func() {
		svc := service.New(service.WithStoreBackend("cassandra"))

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should refuse to start", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, service.ErrUnknownBackend)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})

			Convey("And stopping again should be a no-op", func() {
				svc.Stop()
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats, ShouldNotBeNil)
				So(stats["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When getting stats after some activity", func() {
			_, err := svc.ApplyEvent(ctx, "alice", "e-1", "quest_complete")
			So(err, ShouldBeNil)

			stats := svc.GetStats()

			Convey("Then it should report tracked users and subscribers", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["trackedUsers"], ShouldEqual, 1)
				So(stats["subscribers"], ShouldEqual, 0)
			})
		})
	})
}
