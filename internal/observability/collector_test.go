package observability_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vinatravel/discovery/internal/observability"
)

func TestCollector_SearchStats(t *testing.T) {
	Convey("Given a fresh collector", t, func() {
		ctx := context.Background()
		c := observability.New()

		Convey("When searches of mixed outcomes are recorded", func() {
			c.RecordSearch(ctx, "pho", 50*time.Millisecond, false, nil)
			c.RecordSearch(ctx, "pho", time.Millisecond, true, nil)
			c.RecordSearch(ctx, "bun cha", 80*time.Millisecond, false, errors.New("both sources down"))

			s := c.Stats(ctx)

			Convey("Then totals, errors and cache hits are tracked", func() {
				So(s.Search.Total, ShouldEqual, 3)
				So(s.Search.Errors, ShouldEqual, 1)
				So(s.Search.CacheHits, ShouldEqual, 1)
			})
		})

		Convey("When a search exceeds the slow threshold", func() {
			c.RecordSearch(ctx, "everything in hanoi", 2500*time.Millisecond, false, nil)
			c.RecordSearch(ctx, "quick one", 10*time.Millisecond, false, nil)

			slow := c.SlowSearches(ctx)

			Convey("Then only the slow one is retained", func() {
				So(slow, ShouldHaveLength, 1)
				So(slow[0].Query, ShouldEqual, "everything in hanoi")
				So(slow[0].DurationMS, ShouldEqual, 2500)
			})
		})

		Convey("When more slow searches arrive than the list holds", func() {
			for i := 0; i < 15; i++ {
				c.RecordSearch(ctx, fmt.Sprintf("slow %d", i), 3*time.Second, false, nil)
			}

			slow := c.SlowSearches(ctx)

			Convey("Then only the ten newest are kept, newest first", func() {
				So(slow, ShouldHaveLength, 10)
				So(slow[0].Query, ShouldEqual, "slow 14")
				So(slow[9].Query, ShouldEqual, "slow 5")
			})
		})
	})
}

func TestCollector_SourceStats(t *testing.T) {
	Convey("Given a collector tracking two sources", t, func() {
		ctx := context.Background()
		c := observability.New()

		Convey("When requests with varying latency are recorded", func() {
			c.RecordSourceRequest(ctx, "partner", true, 100*time.Millisecond)
			c.RecordSourceRequest(ctx, "partner", true, 300*time.Millisecond)
			c.RecordSourceRequest(ctx, "external", false, 50*time.Millisecond)

			s := c.Stats(ctx)

			Convey("Then counters and the running average line up", func() {
				So(s.Sources["partner"].Requests, ShouldEqual, 2)
				So(s.Sources["partner"].Successes, ShouldEqual, 2)
				So(s.Sources["partner"].AvgLatencyMS, ShouldAlmostEqual, 200, 0.01)
				So(s.Sources["external"].Failures, ShouldEqual, 1)
			})
		})
	})
}

func TestCollector_Health(t *testing.T) {
	Convey("Given a collector with no traffic", t, func() {
		ctx := context.Background()
		c := observability.New()

		Convey("Then the engine reports healthy", func() {
			So(c.Health(ctx).Healthy, ShouldBeTrue)
		})
	})

	Convey("Given a source with a poor success ratio", t, func() {
		ctx := context.Background()
		c := observability.New()
		for i := 0; i < 10; i++ {
			c.RecordSourceRequest(ctx, "external", i < 7, 10*time.Millisecond)
		}

		h := c.Health(ctx)

		Convey("Then the engine is unhealthy", func() {
			// 7/10 success sits below the 0.8 floor.
			So(h.Healthy, ShouldBeFalse)
		})
	})

	Convey("Given a high search error rate", t, func() {
		ctx := context.Background()
		c := observability.New()
		for i := 0; i < 10; i++ {
			var err error
			if i < 2 {
				err = errors.New("boom")
			}
			c.RecordSearch(ctx, "q", time.Millisecond, false, err)
		}

		h := c.Health(ctx)

		Convey("Then 20 percent errors trips the ceiling", func() {
			So(h.Healthy, ShouldBeFalse)
			So(h.ErrorRate, ShouldAlmostEqual, 0.2, 1e-9)
		})
	})
}

func TestCollector_Ring(t *testing.T) {
	Convey("Given a collector receiving events", t, func() {
		ctx := context.Background()
		c := observability.New()

		for i := 0; i < 5; i++ {
			c.Log(ctx, observability.KindSearch, observability.LevelInfo,
				fmt.Sprintf("search %d", i), nil)
		}
		c.Log(ctx, observability.KindSync, observability.LevelError, "projection failed",
			map[string]any{"entity_id": "abc"})

		Convey("When recent events are fetched", func() {
			events := c.Recent(ctx, 3, "", "")

			Convey("Then they come back most recent first", func() {
				So(events, ShouldHaveLength, 3)
				So(events[0].Message, ShouldEqual, "projection failed")
				So(events[1].Message, ShouldEqual, "search 4")
			})
		})

		Convey("When filtering by kind", func() {
			events := c.Recent(ctx, 0, observability.KindSync, "")

			So(events, ShouldHaveLength, 1)
			So(events[0].Fields["entity_id"], ShouldEqual, "abc")
		})

		Convey("When filtering by level", func() {
			events := c.Recent(ctx, 0, "", observability.LevelError)

			So(events, ShouldHaveLength, 1)
		})

		Convey("When more events arrive than the ring holds", func() {
			for i := 0; i < 1200; i++ {
				c.Log(ctx, observability.KindCache, observability.LevelInfo,
					fmt.Sprintf("evict %d", i), nil)
			}

			events := c.Recent(ctx, 0, "", "")

			Convey("Then the buffer is bounded and newest-first", func() {
				So(events, ShouldHaveLength, 1000)
				So(events[0].Message, ShouldEqual, "evict 1199")
			})
		})
	})
}

func TestCollector_Reset(t *testing.T) {
	Convey("Given a collector with accumulated state", t, func() {
		ctx := context.Background()
		c := observability.New()
		c.RecordSearch(ctx, "pho", 3*time.Second, false, nil)
		c.RecordSourceRequest(ctx, "partner", true, time.Millisecond)
		c.Log(ctx, observability.KindSearch, observability.LevelInfo, "hello", nil)

		Convey("When reset", func() {
			c.Reset(ctx)

			s := c.Stats(ctx)

			Convey("Then everything is cleared", func() {
				So(s.Search.Total, ShouldEqual, 0)
				So(s.Sources, ShouldBeEmpty)
				So(s.Slow, ShouldBeEmpty)
				So(c.Recent(ctx, 0, "", ""), ShouldBeEmpty)
			})
		})
	})
}
