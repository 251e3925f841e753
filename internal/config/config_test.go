package config_test

import (
	"errors"
	"testing"

	"github.com/okian/sitelog/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Runtime, convey.ShouldEqual, config.RuntimeHTTP)
			convey.So(cfg.Environment, convey.ShouldEqual, "dev")
			convey.So(cfg.TTLDays, convey.ShouldEqual, 180)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.BucketDriver, convey.ShouldEqual, config.BucketMemory)
			convey.So(cfg.ArchiveConcurrency, convey.ShouldEqual, 1)
			convey.So(cfg.ArchiveInProcess, convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "cassandra"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the bucket driver is unknown", func() {
			cfg.BucketDriver = "ftp"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the runtime is unknown", func() {
			cfg.Runtime = "cron"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When dynamodb is chosen without a table name", func() {
			cfg.StoreDriver = config.StoreDynamoDB
			cfg.StoreTable = ""

			convey.Convey("Then validation still passes; binding fails later", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}

func TestConfig_ValidateStandaloneArchiver(t *testing.T) {
	convey.Convey("Given an archiver running outside the collector", t, func() {
		cfg := config.New()

		convey.Convey("A memory store is rejected even for a single run", func() {
			convey.So(errors.Is(cfg.ValidateStandaloneArchiver(false), config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(cfg.ValidateStandaloneArchiver(true), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A badger store is rejected for the hourly loop", func() {
			cfg.StoreDriver = config.StoreBadger
			cfg.StoreDir = "/var/lib/sitelog"
			convey.So(errors.Is(cfg.ValidateStandaloneArchiver(false), config.ErrInvalidConfig), convey.ShouldBeTrue)

			convey.Convey("But allowed for a single run on a directory", func() {
				convey.So(cfg.ValidateStandaloneArchiver(true), convey.ShouldBeNil)
			})

			convey.Convey("And rejected when it would be in memory", func() {
				cfg.StoreDir = ""
				convey.So(errors.Is(cfg.ValidateStandaloneArchiver(true), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("A dynamodb store is shared and accepted", func() {
			cfg.StoreDriver = config.StoreDynamoDB
			convey.So(cfg.ValidateStandaloneArchiver(false), convey.ShouldBeNil)
		})
	})
}
