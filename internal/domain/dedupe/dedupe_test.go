package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/safeload/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a key is claimed for the first time", func() {
			runID, seen := d.Claim(ctx, "key-1", "run-1")

			Convey("Then it should be recorded against the run", func() {
				So(seen, ShouldBeFalse)
				So(runID, ShouldEqual, "run-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same key is claimed again", func() {
			d.Claim(ctx, "key-1", "run-1")
			runID, seen := d.Claim(ctx, "key-1", "run-2")

			Convey("Then the original run should be returned", func() {
				So(seen, ShouldBeTrue)
				So(runID, ShouldEqual, "run-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is released", func() {
			d.Claim(ctx, "key-1", "run-1")
			d.Release(ctx, "key-1")
			d.Release(ctx, "never-claimed")
			runID, seen := d.Claim(ctx, "key-1", "run-2")

			Convey("Then it can be claimed by a new run", func() {
				So(seen, ShouldBeFalse)
				So(runID, ShouldEqual, "run-2")
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a deduper bounded to two keys", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.Claim(ctx, "a", "run-a")
		d.Claim(ctx, "b", "run-b")
		d.Claim(ctx, "c", "run-c")

		Convey("Then the oldest key should be evicted", func() {
			So(d.Size(), ShouldEqual, 2)
			_, seenA := d.Claim(ctx, "a", "run-a2")
			So(seenA, ShouldBeFalse)
			runID, seenC := d.Claim(ctx, "c", "other")
			So(seenC, ShouldBeTrue)
			So(runID, ShouldEqual, "run-c")
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 5000; i++ {
			d.Claim(ctx, fmt.Sprintf("k-%d", i), "r")
		}

		Convey("Then nothing should be evicted", func() {
			So(d.Size(), ShouldEqual, 5000)
		})
	})

	Convey("Given concurrent claims of one key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, seen := d.Claim(ctx, "shared", fmt.Sprintf("run-%d", i)); !seen {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one claim should win", func() {
			So(winners, ShouldEqual, 1)
		})
	})
}
