package model_test

import (
	"slices"
	"testing"

	model "github.com/okian/hotitems/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestItem(t *testing.T) {
	convey.Convey("Given an Item", t, func() {
		item := model.Item{ID: "a", Likes: 2, Version: 4}

		convey.Convey("When it is liked", func() {
			liked := item.Liked()

			convey.Convey("Then only the copy gains a like", func() {
				convey.So(liked.Likes, convey.ShouldEqual, 3)
				convey.So(liked.Version, convey.ShouldEqual, 4)
				convey.So(item.Likes, convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given items with tied likes", t, func() {
		items := []model.Item{
			{ID: "c", Likes: 1},
			{ID: "b", Likes: 5},
			{ID: "a", Likes: 1},
		}

		convey.Convey("When sorted by likes", func() {
			slices.SortFunc(items, model.ByLikesDesc)

			convey.Convey("Then ties fall back to id order", func() {
				convey.So(items[0].ID, convey.ShouldEqual, "b")
				convey.So(items[1].ID, convey.ShouldEqual, "a")
				convey.So(items[2].ID, convey.ShouldEqual, "c")
			})
		})
	})

	convey.Convey("Given change kinds", t, func() {
		convey.So(model.ChangeUpsert.String(), convey.ShouldEqual, "upsert")
		convey.So(model.ChangeDelete.String(), convey.ShouldEqual, "delete")
		convey.So(model.ChangeKind(0).String(), convey.ShouldEqual, "unknown")
	})
}
