package logger_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		err := logger.Init()
		So(err, ShouldBeNil)

		ctx := context.Background()
		log := logger.Get()

		Convey("Then logging at every level does not panic", func() {
			So(func() {
				log.Debug(ctx, "debug message", logger.String("k", "v"))
				log.Info(ctx, "info message", logger.Int("n", 1))
				log.Warn(ctx, "warn message", logger.Int64("big", 9_000_000_000))
				log.Error(ctx, "error message", logger.Duration("took", time.Millisecond))
			}, ShouldNotPanic)
		})

		Convey("Then named loggers are derived without error", func() {
			named := logger.Named("engine")
			So(named, ShouldNotBeNil)
			So(func() { named.Info(ctx, "scoped", logger.Bool("ok", true)) }, ShouldNotPanic)
		})

		Convey("Then level strings are parsed", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("WARN"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
			So(logger.SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}
