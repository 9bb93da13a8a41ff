package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/quizgate/internal/config"
	"github.com/okian/quizgate/internal/domain/risk"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 600*time.Second)
			convey.So(cfg.SweepInterval(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.RiskThresholds(), convey.ShouldResemble, risk.DefaultThresholds())
			convey.So(cfg.Challenges.MultiQuestions, convey.ShouldEqual, 3)
			convey.So(cfg.ExposeAnswers, convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given configs with invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero ttl", func(c *config.Config) { c.SessionTTLSeconds = 0 }},
			{"unordered tiers", func(c *config.Config) { c.Thresholds.Medium = 0.2 }},
			{"passing above count", func(c *config.Config) { c.Challenges.MultiPassingScore = 4 }},
			{"inverted latency", func(c *config.Config) {
				c.Scorer.LatencyMinMS = 100
				c.Scorer.LatencyMaxMS = 50
			}},
		}
		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)

				convey.Convey("Then validation should fail", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
