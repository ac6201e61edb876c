package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/hotitems/internal/adapters/cache"
	service "github.com/okian/hotitems/internal/app"
	"github.com/okian/hotitems/internal/cdc"
	"github.com/okian/hotitems/internal/leaderboard"
	"github.com/okian/hotitems/internal/resync"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWritePathCDCAndResync(t *testing.T) {
	Convey("Given the service, a CDC applier and a resync job over one cache", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		board := leaderboard.New(cache.NewRedisClient(mr.Addr(), "", 0))
		store := newStore(t)
		svc := service.New(store, board)
		applier := cdc.NewApplier(board)
		job := resync.New(store, board)

		a, err := svc.Create(ctx, "item A", "u1")
		So(err, ShouldBeNil)
		b, err := svc.Create(ctx, "item B", "u2")
		So(err, ShouldBeNil)
		for i := 0; i < 3; i++ {
			_, err = svc.Like(ctx, a.ID)
			So(err, ShouldBeNil)
		}

		Convey("When reading the hottest item", func() {
			top, err := svc.TopHot(ctx, 1)
			So(err, ShouldBeNil)

			Convey("Then it is A with three likes", func() {
				So(top, ShouldHaveLength, 1)
				So(top[0].ID, ShouldEqual, a.ID)
				So(top[0].Likes, ShouldEqual, 3)
			})
		})

		Convey("When a CDC delete for A arrives", func() {
			del := []byte(fmt.Sprintf(`{"d":{"id":{"v":%q}}}`, a.ID))
			So(applier.Apply(ctx, del), ShouldEqual, cdc.Applied)

			top, err := svc.TopHot(ctx, 10)
			So(err, ShouldBeNil)

			Convey("Then the hot list stays consistent", func() {
				So(ids(top), ShouldResemble, []string{b.ID})
				So(mr.Exists(leaderboard.DetailKey(a.ID)), ShouldBeFalse)
			})

			Convey("Then a resync restores the ranking from the store", func() {
				res, err := job.Run(ctx)
				So(err, ShouldBeNil)
				So(res.Synced, ShouldEqual, 2)

				top, err := svc.TopHot(ctx, 10)
				So(err, ShouldBeNil)
				So(ids(top), ShouldResemble, []string{a.ID, b.ID})
			})
		})

		Convey("When a replayed CDC upsert carries an older score", func() {
			stale := []byte(fmt.Sprintf(`{"u":{"id":{"v":%q},"content":{"v":"item A"},"user_id":{"v":"u1"},`+
				`"likes":{"v":1},"version":{"v":1},"created_at":{"v":"2024-01-01 00:00:00"},"updated_at":{"v":"2024-01-01 00:00:00"}}}`, a.ID))
			So(applier.Apply(ctx, stale), ShouldEqual, cdc.Applied)

			Convey("Then the cache follows the event until the next write heals it", func() {
				top, err := svc.TopHot(ctx, 1)
				So(err, ShouldBeNil)
				So(top[0].Likes, ShouldEqual, 1)

				liked, err := svc.Like(ctx, a.ID)
				So(err, ShouldBeNil)
				So(liked.Likes, ShouldEqual, 4)
				top, err = svc.TopHot(ctx, 1)
				So(err, ShouldBeNil)
				So(top[0].Likes, ShouldEqual, 4)
			})
		})
	})
}
