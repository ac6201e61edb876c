package cdc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/hotitems/internal/cdc"
	"github.com/okian/hotitems/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const upsertJSON = `{"u":{` +
	`"id":{"v":"item-1"},` +
	`"content":{"v":"hello"},` +
	`"user_id":{"v":"user-9"},` +
	`"likes":{"v":12},` +
	`"version":{"v":3},` +
	`"created_at":{"v":"2024-05-01 10:00:00"},` +
	`"updated_at":{"v":"2024-05-02 11:30:15"}}}`

func TestDecode(t *testing.T) {
	Convey("Given change envelopes", t, func() {
		Convey("When an upsert image is decoded", func() {
			ev, err := cdc.Decode([]byte(upsertJSON), time.UTC)
			So(err, ShouldBeNil)

			Convey("Then every field is unwrapped", func() {
				So(ev.Kind, ShouldEqual, model.ChangeUpsert)
				So(ev.Item.ID, ShouldEqual, "item-1")
				So(ev.Item.Content, ShouldEqual, "hello")
				So(ev.Item.OwnerID, ShouldEqual, "user-9")
				So(ev.Item.Likes, ShouldEqual, 12)
				So(ev.Item.Version, ShouldEqual, 3)
				So(ev.Item.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(ev.Item.UpdatedAt.Equal(time.Date(2024, 5, 2, 11, 30, 15, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the payload carries transport framing", func() {
			ev, err := cdc.Decode([]byte("\x00\x01binlog|"+upsertJSON), time.UTC)

			Convey("Then the prefix before the first brace is ignored", func() {
				So(err, ShouldBeNil)
				So(ev.Item.ID, ShouldEqual, "item-1")
			})
		})

		Convey("When the timestamps are read in another zone", func() {
			loc := time.FixedZone("UTC+8", 8*60*60)
			ev, err := cdc.Decode([]byte(upsertJSON), loc)
			So(err, ShouldBeNil)

			Convey("Then they are converted to UTC", func() {
				So(ev.Item.CreatedAt.Location(), ShouldEqual, time.UTC)
				So(ev.Item.CreatedAt.Equal(time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When a delete carries only the id as a number", func() {
			ev, err := cdc.Decode([]byte(`{"d":{"id":{"v":42}}}`), time.UTC)

			Convey("Then it decodes to a delete of that id", func() {
				So(err, ShouldBeNil)
				So(ev.Kind, ShouldEqual, model.ChangeDelete)
				So(ev.Item.ID, ShouldEqual, "42")
			})
		})

		Convey("When both u and d are present", func() {
			ev, err := cdc.Decode([]byte(`{"d":{"id":{"v":"x"}},"u":{"id":{"v":"x"},"content":{"v":"c"},"user_id":{"v":"o"},"likes":{"v":1},"version":{"v":1},"created_at":{"v":"2024-01-01 00:00:00"},"updated_at":{"v":"2024-01-01 00:00:00"}}}`), time.UTC)

			Convey("Then the upsert wins", func() {
				So(err, ShouldBeNil)
				So(ev.Kind, ShouldEqual, model.ChangeUpsert)
			})
		})

		Convey("When the message is not a change event", func() {
			cases := map[string]error{
				"":                     cdc.ErrEmptyPayload,
				"   ":                  cdc.ErrEmptyPayload,
				"heartbeat":            cdc.ErrNoObject,
				"{broken":              cdc.ErrUnparseable,
				`{"x":{"id":{"v":1}}}`: cdc.ErrUnknownEnvelope,
			}

			Convey("Then each gets its own sentinel", func() {
				for payload, want := range cases {
					_, err := cdc.Decode([]byte(payload), time.UTC)
					So(errors.Is(err, want), ShouldBeTrue)
				}
			})
		})

		Convey("When a field is malformed", func() {
			payloads := []string{
				`{"u":"not an object"}`,
				`{"d":{}}`,
				`{"d":{"id":{"v":""}}}`,
				`{"d":{"id":{"v":null}}}`,
				`{"d":{"id":{"v":1.5}}}`,
				`{"d":{"id":"bare"}}`,
				`{"u":{"id":{"v":"a"},"content":{"v":"c"},"user_id":{"v":"o"},"likes":{"v":-1},"version":{"v":1},"created_at":{"v":"2024-01-01 00:00:00"},"updated_at":{"v":"2024-01-01 00:00:00"}}}`,
				`{"u":{"id":{"v":"a"},"content":{"v":"c"},"user_id":{"v":"o"},"likes":{"v":"many"},"version":{"v":1},"created_at":{"v":"2024-01-01 00:00:00"},"updated_at":{"v":"2024-01-01 00:00:00"}}}`,
				`{"u":{"id":{"v":"a"},"content":{"v":"c"},"user_id":{"v":"o"},"likes":{"v":1},"version":{"v":1},"created_at":{"v":"2024-01-01T00:00:00Z"},"updated_at":{"v":"2024-01-01 00:00:00"}}}`,
				`{"u":{"id":{"v":"a"},"user_id":{"v":"o"},"likes":{"v":1},"version":{"v":1},"created_at":{"v":"2024-01-01 00:00:00"},"updated_at":{"v":"2024-01-01 00:00:00"}}}`,
			}

			Convey("Then it is reported as malformed", func() {
				for _, p := range payloads {
					_, err := cdc.Decode([]byte(p), time.UTC)
					So(errors.Is(err, cdc.ErrMalformedField), ShouldBeTrue)
				}
			})
		})

		Convey("When cleaning payloads", func() {
			Convey("Then the object is kept and objectless payloads become nil", func() {
				So(string(cdc.Clean([]byte(`xx{"a":1}`))), ShouldEqual, `{"a":1}`)
				So(cdc.Clean([]byte("no object")), ShouldBeNil)
			})
		})
	})
}
