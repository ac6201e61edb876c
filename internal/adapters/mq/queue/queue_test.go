package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func msg(payload string) Message {
	return Message{Payload: []byte(payload), Topic: "items", ReceivedAt: time.Now()}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("When a message is enqueued and dequeued", func() {
			So(q.Enqueue(ctx, msg("one")), ShouldBeNil)
			So(q.Len(ctx), ShouldEqual, 1)

			dctx, cancel := context.WithCancel(ctx)
			defer cancel()
			got := <-q.Dequeue(dctx)

			Convey("Then the payload comes through unchanged", func() {
				So(string(got.Payload), ShouldEqual, "one")
				So(got.Topic, ShouldEqual, "items")
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, msg("a")), ShouldBeNil)
			So(q.Enqueue(ctx, msg("b")), ShouldBeNil)
			err := q.Enqueue(ctx, msg("c"))

			Convey("Then the next message is refused without blocking", func() {
				So(errors.Is(err, ErrFull), ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the caller's context is already done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then the message is refused", func() {
				So(errors.Is(q.Enqueue(cctx, msg("x")), context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the queue is closed with messages inside", func() {
			So(q.Enqueue(ctx, msg("a")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new messages are refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, msg("b")), ErrClosed), ShouldBeTrue)
				So(q.Close(), ShouldBeNil)
			})

			Convey("Then queued messages drain before the channel closes", func() {
				var got []string
				for m := range q.Dequeue(ctx) {
					got = append(got, string(m.Payload))
				}
				So(got, ShouldResemble, []string{"a"})
			})
		})
	})
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	Convey("Given many producers and consumers", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(100))
		const producers, perProducer = 10, 100

		var consumed sync.Map
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for m := range q.Dequeue(ctx) {
					consumed.Store(string(m.Payload), true)
				}
			}()
		}

		var pw sync.WaitGroup
		for p := 0; p < producers; p++ {
			pw.Add(1)
			go func(p int) {
				defer pw.Done()
				for j := 0; j < perProducer; j++ {
					for q.Enqueue(ctx, msg(fmt.Sprintf("%d-%d", p, j))) != nil {
						time.Sleep(time.Millisecond)
					}
				}
			}(p)
		}
		pw.Wait()
		So(q.Close(), ShouldBeNil)
		wg.Wait()

		Convey("Then every message is delivered exactly once", func() {
			n := 0
			consumed.Range(func(_, _ any) bool { n++; return true })
			So(n, ShouldEqual, producers*perProducer)
			So(q.Len(ctx), ShouldEqual, 0)
		})
	})
}
