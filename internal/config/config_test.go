package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/footsteps/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.StepsPerGridSquare, convey.ShouldEqual, 3)
			convey.So(cfg.LateralOffsetFactor, convey.ShouldEqual, 0.1)
			convey.So(cfg.MoveDurationPerGrid(), convey.ShouldEqual, 150*time.Millisecond)
			convey.So(cfg.Paced, convey.ShouldBeTrue)
			convey.So(cfg.MaxStepsPerMove, convey.ShouldEqual, 10_000)
			convey.So(cfg.FadeDuration(), convey.ShouldEqual, 6*time.Second)
			convey.So(cfg.FadeSteps, convey.ShouldEqual, 20)
			convey.So(cfg.BaseAlpha, convey.ShouldEqual, 0.4)
			convey.So(cfg.DecalSize, convey.ShouldEqual, 0.33)
			convey.So(cfg.DecalZ, convey.ShouldEqual, 100)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one unusable setting", t, func() {
		cases := []func(*config.Config){
			func(c *config.Config) { c.Addr = "" },
			func(c *config.Config) { c.QueueSize = 0 },
			func(c *config.Config) { c.WorkerCount = -1 },
			func(c *config.Config) { c.DedupeSize = -5 },
			func(c *config.Config) { c.GridSize = 0 },
			func(c *config.Config) { c.StepsPerGridSquare = 0 },
			func(c *config.Config) { c.LateralOffsetFactor = -0.1 },
			func(c *config.Config) { c.MoveDurationPerGridMS = -1 },
			func(c *config.Config) { c.MaxStepsPerMove = 0 },
			func(c *config.Config) { c.FadeDurationMS = 0 },
			func(c *config.Config) { c.FadeSteps = 0 },
			func(c *config.Config) { c.BaseAlpha = 1.5 },
			func(c *config.Config) { c.DecalSize = 0 },
			func(c *config.Config) { c.LeftImage = "" },
		}

		convey.Convey("Then each is rejected as invalid config", func() {
			for _, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}

func TestConfig_Origins(t *testing.T) {
	convey.Convey("Given a comma separated origin list", t, func() {
		cfg := config.New()
		cfg.AllowedOrigins = " https://vtt.example, ,http://localhost:30000 "

		convey.Convey("Then it splits into trimmed entries", func() {
			convey.So(cfg.Origins(), convey.ShouldResemble, []string{"https://vtt.example", "http://localhost:30000"})
		})

		convey.Convey("Then an empty list yields no origins", func() {
			cfg.AllowedOrigins = ""
			convey.So(cfg.Origins(), convey.ShouldBeEmpty)
		})
	})
}
