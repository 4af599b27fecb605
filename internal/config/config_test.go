package config_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/safeload/internal/adapters/repository"
	"github.com/okian/safeload/internal/config"
	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/internal/loadtest"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.TargetURL, convey.ShouldEqual, "http://localhost:8080")
			convey.So(cfg.MaxUsers, convey.ShouldEqual, 100)
			convey.So(cfg.MinDurationSec, convey.ShouldEqual, 10)
			convey.So(cfg.MaxDurationSec, convey.ShouldEqual, 600)
			convey.So(cfg.MinRampUpSec, convey.ShouldEqual, 1)
			convey.So(cfg.MaxRampUpSec, convey.ShouldEqual, 60)
			convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 10000)
			convey.So(cfg.ThinkTimeMinMS, convey.ShouldEqual, 500)
			convey.So(cfg.ThinkTimeMaxMS, convey.ShouldEqual, 1500)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 16)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
			convey.So(cfg.HistoryBackend, convey.ShouldEqual, config.HistoryMemory)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then its limits match the engine defaults", func() {
			convey.So(cfg.Limits(), convey.ShouldResemble, loadtest.DefaultLimits())
			convey.So(len(cfg.EngineOptions()), convey.ShouldEqual, 4)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid field", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = " " },
			"no users":            func(c *config.Config) { c.MaxUsers = 0 },
			"inverted durations":  func(c *config.Config) { c.MinDurationSec, c.MaxDurationSec = 60, 10 },
			"zero ramp-up":        func(c *config.Config) { c.MinRampUpSec = 0 },
			"zero timeout":        func(c *config.Config) { c.RequestTimeoutMS = 0 },
			"inverted think time": func(c *config.Config) { c.ThinkTimeMinMS, c.ThinkTimeMaxMS = 900, 100 },
			"zero workers":        func(c *config.Config) { c.WorkerCount = 0 },
			"zero history":        func(c *config.Config) { c.HistoryLimit = 0 },
			"unknown backend":     func(c *config.Config) { c.HistoryBackend = "redis" },
			"bolt without a path": func(c *config.Config) { c.HistoryBackend, c.HistoryPath = config.HistoryBolt, "" },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_Catalog(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("When no scenarios are configured", func() {
			cat, err := cfg.Catalog()

			convey.Convey("Then the built-in catalog is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cat.Names(), convey.ShouldResemble, scenario.Default().Names())
			})
		})

		convey.Convey("When scenarios are configured", func() {
			cfg.Scenarios = []model.Scenario{{
				Name:     "ping",
				Weight:   1,
				Requests: []model.ScenarioRequest{{Method: "get", Path: "/ping"}},
			}}
			cat, err := cfg.Catalog()

			convey.Convey("Then they replace the built-in catalog", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cat.Names(), convey.ShouldResemble, []string{"ping"})
			})
		})

		convey.Convey("When a configured scenario is invalid", func() {
			cfg.Scenarios = []model.Scenario{{Name: "ping", Weight: 0}}
			_, err := cfg.Catalog()
			convey.So(errors.Is(err, scenario.ErrInvalidCatalog), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_OpenStore(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("When the backend is memory", func() {
			store, err := cfg.OpenStore()
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(store.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When the backend is bolt", func() {
			cfg.HistoryBackend = config.HistoryBolt
			cfg.HistoryPath = filepath.Join(t.TempDir(), "history", "runs.db")
			store, err := cfg.OpenStore()
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then records survive in the file", func() {
				rec := model.RunRecord{ID: "r1", Status: model.RunStatusCompleted, CreatedAt: time.Now()}
				convey.So(store.Save(t.Context(), rec), convey.ShouldBeNil)
				convey.So(store.Count(t.Context()), convey.ShouldEqual, 1)
			})
		})
	})
}
