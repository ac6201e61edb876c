package leaderboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/hotitems/internal/adapters/cache"
	"github.com/okian/hotitems/internal/domain/apperr"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/internal/leaderboard"
	. "github.com/smartystreets/goconvey/convey"
)

func item(id string, likes int64) model.Item {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.Item{ID: id, Content: "c-" + id, OwnerID: "u", Likes: likes, CreatedAt: ts, UpdatedAt: ts}
}

func TestLeaderboardCache(t *testing.T) {
	Convey("Given a leaderboard over redis", t, func() {
		mr := miniredis.RunT(t)
		lb := leaderboard.New(cache.NewRedisClient(mr.Addr(), "", 0))
		ctx := context.Background()

		Convey("When items are upserted", func() {
			So(lb.Upsert(ctx, item("a", 3)), ShouldBeNil)
			So(lb.Upsert(ctx, item("b", 7)), ShouldBeNil)
			So(lb.Upsert(ctx, item("c", 5)), ShouldBeNil)

			Convey("Then TopN ranks them by likes", func() {
				ids, err := lb.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"b", "c"})
			})

			Convey("Then detail entries are written with the detail TTL", func() {
				So(mr.Exists("item:a"), ShouldBeTrue)
				So(mr.TTL("item:a"), ShouldEqual, time.Hour)
			})

			Convey("Then upserting again with a new score moves the item", func() {
				So(lb.Upsert(ctx, item("a", 9)), ShouldBeNil)
				ids, err := lb.TopN(ctx, 1)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"a"})
			})

			Convey("Then upserting the same item twice changes nothing", func() {
				before, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(lb.Upsert(ctx, item("c", 5)), ShouldBeNil)
				after, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(after, ShouldResemble, before)
			})

			Convey("Then Remove drops the member and its detail", func() {
				So(lb.Remove(ctx, "b"), ShouldBeNil)
				ids, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"c", "a"})
				So(mr.Exists("item:b"), ShouldBeFalse)
			})

			Convey("Then ReadDetails reports hits in order and misses", func() {
				mr.Del("item:c")
				So(mr.Set("item:a", "{not json"), ShouldBeNil)

				hits, misses, err := lb.ReadDetails(ctx, []string{"b", "c", "a"})
				So(err, ShouldBeNil)
				So(hits, ShouldHaveLength, 1)
				So(hits[0].ID, ShouldEqual, "b")
				So(hits[0].Likes, ShouldEqual, 7)
				So(misses, ShouldResemble, []string{"c", "a"})
			})
		})

		Convey("When the ranking is empty", func() {
			ids, err := lb.TopN(ctx, 10)

			Convey("Then TopN is empty without error", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldBeEmpty)
			})
		})

		Convey("When removing an id that was never cached", func() {
			Convey("Then it is a no-op", func() {
				So(lb.Remove(ctx, "ghost"), ShouldBeNil)
			})
		})

		Convey("When the backend fails", func() {
			mr.SetError("ERR down")

			Convey("Then every operation returns a cache error", func() {
				err := lb.Upsert(ctx, item("a", 1))
				So(errors.Is(err, apperr.ErrCache), ShouldBeTrue)

				_, err = lb.TopN(ctx, 5)
				So(apperr.KindOf(err), ShouldEqual, apperr.KindCache)

				_, _, err = lb.ReadDetails(ctx, []string{"a"})
				So(apperr.KindOf(err), ShouldEqual, apperr.KindCache)

				So(apperr.KindOf(lb.Remove(ctx, "a")), ShouldEqual, apperr.KindCache)
			})
		})
	})
}

func TestStagingAndReplace(t *testing.T) {
	Convey("Given a leaderboard with a live ranking", t, func() {
		mr := miniredis.RunT(t)
		lb := leaderboard.New(cache.NewRedisClient(mr.Addr(), "", 0))
		ctx := context.Background()
		So(lb.Upsert(ctx, item("old1", 10)), ShouldBeNil)
		So(lb.Upsert(ctx, item("old2", 4)), ShouldBeNil)

		Convey("When a replacement is staged and promoted", func() {
			st, err := lb.BeginStaging(ctx)
			So(err, ShouldBeNil)
			So(st.Add(ctx, item("new1", 2)), ShouldBeNil)
			So(st.Add(ctx, item("new2", 8)), ShouldBeNil)

			live, err := lb.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(live, ShouldResemble, []string{"old1", "old2"})

			So(lb.AtomicReplace(ctx, st), ShouldBeNil)

			Convey("Then the live ranking is exactly the staged one", func() {
				So(st.Len(), ShouldEqual, 2)
				ids, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"new2", "new1"})
				So(mr.Exists(leaderboard.KeyHotItemsTemp), ShouldBeFalse)
				So(mr.Exists("item:new1"), ShouldBeTrue)
			})

			Convey("Then discarding afterwards leaves the live key alone", func() {
				So(st.Discard(ctx), ShouldBeNil)
				So(mr.Exists(leaderboard.KeyHotItems), ShouldBeTrue)
			})
		})

		Convey("When a leftover temp key exists", func() {
			_, err := mr.ZAdd(leaderboard.KeyHotItemsTemp, 99, "stale")
			So(err, ShouldBeNil)
			st, err := lb.BeginStaging(ctx)
			So(err, ShouldBeNil)
			So(st.Add(ctx, item("fresh", 1)), ShouldBeNil)
			So(lb.AtomicReplace(ctx, st), ShouldBeNil)

			Convey("Then it does not leak into the new ranking", func() {
				ids, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"fresh"})
			})
		})

		Convey("When a staging is discarded", func() {
			st, err := lb.BeginStaging(ctx)
			So(err, ShouldBeNil)
			So(st.Add(ctx, item("new1", 50)), ShouldBeNil)
			So(st.Discard(ctx), ShouldBeNil)

			Convey("Then the live ranking is unchanged and the temp key is gone", func() {
				ids, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"old1", "old2"})
				So(mr.Exists(leaderboard.KeyHotItemsTemp), ShouldBeFalse)
			})

			Convey("Then it can no longer be promoted", func() {
				So(apperr.KindOf(lb.AtomicReplace(ctx, st)), ShouldEqual, apperr.KindCache)
			})
		})

		Convey("When nothing was staged", func() {
			st, err := lb.BeginStaging(ctx)
			So(err, ShouldBeNil)
			err = lb.AtomicReplace(ctx, st)

			Convey("Then the swap is refused and the live key survives", func() {
				So(errors.Is(err, leaderboard.ErrStagingMissing), ShouldBeTrue)
				ids, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"old1", "old2"})
			})
		})
	})
}

func TestLeaderboardOverMemory(t *testing.T) {
	Convey("Given a leaderboard over the in-memory backend", t, func() {
		lb := leaderboard.New(cache.NewMemoryClient(), leaderboard.WithDetailTTL(time.Minute))
		ctx := context.Background()

		Convey("When items are staged, promoted and read back", func() {
			So(lb.Upsert(ctx, item("live", 1)), ShouldBeNil)
			st, err := lb.BeginStaging(ctx)
			So(err, ShouldBeNil)
			So(st.Add(ctx, item("x", 3)), ShouldBeNil)
			So(st.Add(ctx, item("y", 6)), ShouldBeNil)
			So(lb.AtomicReplace(ctx, st), ShouldBeNil)

			Convey("Then ranking and details agree", func() {
				ids, err := lb.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"y", "x"})

				hits, misses, err := lb.ReadDetails(ctx, ids)
				So(err, ShouldBeNil)
				So(misses, ShouldBeEmpty)
				So(hits[0].Likes, ShouldEqual, 6)
				So(hits[0].CreatedAt.Equal(item("y", 6).CreatedAt), ShouldBeTrue)
			})
		})
	})
}
