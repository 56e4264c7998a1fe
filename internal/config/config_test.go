package config_test

import (
	"testing"

	"github.com/okian/tally/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.TopN, convey.ShouldEqual, 10)
			convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 300)
			convey.So(cfg.NotifierBuffer, convey.ShouldEqual, 16)
			convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.Actions["quest_complete"], convey.ShouldEqual, 50)
			convey.So(cfg.Actions["achievement"], convey.ShouldEqual, 25)
			convey.So(cfg.Actions["daily_login"], convey.ShouldEqual, 5)
		})
	})
}
