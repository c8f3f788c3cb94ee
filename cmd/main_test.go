package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/zonewatch/internal/adapters/mq/queue"
	"github.com/okian/zonewatch/internal/adapters/mq/worker"
	"github.com/okian/zonewatch/internal/config"
	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testZones = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"id":"Z1"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`

const testFeed = `[{"placa":"V1","latitude":0.5,"longitude":0.5,"dataposicao":"2024-05-01 10:00:00"}]`

func writeFile(dir, name, content string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		panic(err)
	}
	return p
}

func testConfig(dir string) *config.Config {
	cfg := config.New(context.Background())
	cfg.Addr = "127.0.0.1:0"
	cfg.ZonesPath = writeFile(dir, "zones.geojson", testZones)
	cfg.FeedPath = writeFile(dir, "feed.json", testFeed)
	cfg.StatePath = filepath.Join(dir, "state.json")
	cfg.SpreadsheetPath = filepath.Join(dir, "book.xlsx")
	cfg.TimestampLocation = "UTC"
	return cfg
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a file based configuration", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		cfg := testConfig(dir)
		log := logger.Nop()

		convey.Convey("When the application is built", func() {
			a, err := build(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer a.close(log)

			convey.Convey("Then the workbook is created up front", func() {
				_, statErr := os.Stat(cfg.SpreadsheetPath)
				convey.So(statErr, convey.ShouldBeNil)
			})

			convey.Convey("Then notifications are disabled without a broker", func() {
				convey.So(a.queue, convey.ShouldBeNil)
				convey.So(a.pool, convey.ShouldBeNil)
			})

			convey.Convey("Then a pass runs against the configured files", func() {
				res, err := a.tracker.RunPass(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.FirstRun, convey.ShouldBeTrue)
				convey.So(len(res.Events), convey.ShouldEqual, 1)
				convey.So(res.Events[0].Kind, convey.ShouldEqual, model.InitialInside)

				_, statErr := os.Stat(cfg.StatePath)
				convey.So(statErr, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the memory backend and pair policy are selected", func() {
			cfg.StateBackend = "memory"
			cfg.FirstSeenPolicy = "pair"
			cfg.EventSinks = []string{"log"}
			cfg.TimeOrder = true
			a, err := build(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer a.close(log)

			convey.Convey("Then no state file is written", func() {
				_, err := a.tracker.RunPass(ctx)
				convey.So(err, convey.ShouldBeNil)
				_, statErr := os.Stat(cfg.StatePath)
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the zones file is missing", func() {
			cfg.ZonesPath = filepath.Join(dir, "missing.geojson")
			a, err := build(ctx, cfg, log)

			convey.Convey("Then build fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(a, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the zone collection is empty", func() {
			cfg.ZonesPath = writeFile(dir, "empty.geojson", `{"type":"FeatureCollection","features":[]}`)
			_, err := build(ctx, cfg, log)

			convey.Convey("Then build refuses to start", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the fix filter does not compile", func() {
			cfg.FixFilter = "vehicle_id =="
			_, err := build(ctx, cfg, log)

			convey.Convey("Then build fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the feed format is unknown", func() {
			cfg.FeedFormat = "csv"
			_, err := build(ctx, cfg, log)

			convey.Convey("Then build fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a file based configuration and a cancelled context", t, func() {
		cfg := testConfig(t.TempDir())
		cfg.EventSinks = []string{"log"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run shuts down cleanly", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(10 * time.Second):
				convey.So("run did not return", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestQueueMetricsUpdater(t *testing.T) {
	convey.Convey("Given a queue metrics updater", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then it returns once the context is done", func() {
			convey.So(func() {
				startQueueMetricsUpdater(ctx, queue.NewMemory())
			}, convey.ShouldNotPanic)
		})
	})
}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify(context.Context, model.Event) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestCloseDrainsNotifications(t *testing.T) {
	convey.Convey("Given a started application whose signal context is cancelled", t, func() {
		q := queue.NewMemory(queue.WithCapacity(10))
		notifier := &countingNotifier{}
		a := &application{
			queue: q,
			pool:  worker.NewPool(1, q, notifier, nil, worker.WithLogger(logger.Nop())),
		}

		ctx, cancel := context.WithCancel(context.Background())
		a.start(ctx)
		cancel()

		at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		for _, id := range []string{"V1", "V2", "V3"} {
			e := model.Event{VehicleID: id, ZoneID: "Z1", Kind: model.Entered, ObservedAt: at}
			convey.So(q.Enqueue(context.Background(), e), convey.ShouldBeNil)
		}

		convey.Convey("When it is closed", func() {
			a.close(logger.Nop())

			convey.Convey("Then the queued events are delivered before the workers stop", func() {
				convey.So(notifier.count(), convey.ShouldEqual, 3)
				convey.So(q.Len(), convey.ShouldEqual, 0)
			})
		})
	})
}
