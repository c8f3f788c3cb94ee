package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/zonewatch/internal/domain/dedupe"
	"github.com/okian/zonewatch/internal/domain/model"
)

func TestDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.New()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a key is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "V1|Z1|entered|t")

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a second record reports it as seen", func() {
				So(d.SeenAndRecord(ctx, "V1|Z1|entered|t"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording allows it again", func() {
				d.Unrecord(ctx, "V1|Z1|entered|t")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "V1|Z1|entered|t"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown key", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given events with the same identity", t, func() {
		d := dedupe.New()
		at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		e := model.Event{VehicleID: "V1", ZoneID: "Z1", Kind: model.Entered, ObservedAt: at}
		retry := e
		retry.ObservedAt = at.In(time.FixedZone("BRT", -3*3600))

		Convey("Then the retry is recognised", func() {
			So(dedupe.SeenEvent(ctx, d, e), ShouldBeFalse)
			So(dedupe.SeenEvent(ctx, d, retry), ShouldBeTrue)
		})

		Convey("Then a different kind is not", func() {
			other := e
			other.Kind = model.Exited
			So(dedupe.SeenEvent(ctx, d, e), ShouldBeFalse)
			So(dedupe.SeenEvent(ctx, d, other), ShouldBeFalse)
		})
	})
}

func TestDeduperBounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper bounded to two keys", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(2))
		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")

		Convey("When a third key arrives", func() {
			So(d.SeenAndRecord(ctx, "c"), ShouldBeFalse)

			Convey("Then the oldest key is forgotten", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			So(d.SeenAndRecord(ctx, fmt.Sprintf("k-%d", i)), ShouldBeFalse)
		}
		So(d.Size(), ShouldEqual, int64(1000))
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on the same keys", t, func() {
		d := dedupe.New()
		const workers, keys = 8, 200

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < keys; k++ {
					if !d.SeenAndRecord(context.Background(), fmt.Sprintf("k-%d", k)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every key is new exactly once", func() {
			So(fresh, ShouldEqual, keys)
			So(d.Size(), ShouldEqual, int64(keys))
		})
	})
}
