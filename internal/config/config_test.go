package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/gridelo/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StartSeason, convey.ShouldEqual, 2018)
			convey.So(cfg.ModernCutoffSeason, convey.ShouldEqual, 2023)
			convey.So(cfg.InitialRating, convey.ShouldEqual, 1500)
			convey.So(cfg.KFactor, convey.ShouldEqual, 24)
			convey.So(cfg.Schedule, convey.ShouldEqual, "0 0 10 * * MON")
			convey.So(cfg.TriggerQueueSize, convey.ShouldEqual, 1)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.CacheTTL, convey.ShouldEqual, 24*time.Hour)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the k-factor is not positive", func() {
			cfg.KFactor = 0

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "mongo"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the memory store is chosen without a DSN", func() {
			cfg.StoreDriver = "memory"
			cfg.StoreDSN = ""

			convey.Convey("Then validation passes", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When sqlite is chosen without a DSN", func() {
			cfg.StoreDSN = ""

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When redis is chosen without an address", func() {
			cfg.CacheDriver = "redis"
			cfg.RedisAddr = ""

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When caching is on with a zero TTL", func() {
			cfg.CacheTTL = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When caching is off with a zero TTL", func() {
			cfg.CacheDriver = "none"
			cfg.CacheTTL = 0

			convey.Convey("Then validation passes", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the upstream URL is malformed", func() {
			cfg.LegacyBaseURL = "not a url"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}
