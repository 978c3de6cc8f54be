package queue_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vinatravel/discovery/internal/adapters/mq/queue"
)

func TestInMemory(t *testing.T) {
	Convey("Given a small bounded queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemory(queue.WithCapacity(2))

		Convey("When jobs fit within capacity", func() {
			So(q.Enqueue(ctx, queue.Job{EntityID: "a"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{EntityID: "b"}), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then the next enqueue is rejected, not blocked", func() {
				So(q.Enqueue(ctx, queue.Job{EntityID: "c"}), ShouldBeFalse)
			})
		})

		Convey("When jobs are dequeued", func() {
			So(q.Enqueue(ctx, queue.Job{EntityID: "a"}), ShouldBeTrue)

			job := <-q.Dequeue(ctx)

			So(job.EntityID, ShouldEqual, "a")
			So(q.Len(ctx), ShouldEqual, 0)
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Job{EntityID: "a"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue is refused but drained jobs still arrive", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Job{EntityID: "b"}), ShouldBeFalse)

				job, ok := <-q.Dequeue(ctx)
				So(ok, ShouldBeTrue)
				So(job.EntityID, ShouldEqual, "a")

				_, ok = <-q.Dequeue(ctx)
				So(ok, ShouldBeFalse)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
