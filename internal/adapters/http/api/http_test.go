package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/hotitems/internal/adapters/http/api"
	"github.com/okian/hotitems/internal/domain/apperr"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeService struct {
	items     map[string]model.Item
	lastLimit int
	createErr error
	likeErr   error
	hotErr    error
}

func newFakeService() *fakeService {
	return &fakeService{items: map[string]model.Item{}}
}

func (f *fakeService) Create(_ context.Context, content, ownerID string) (model.Item, error) {
	if f.createErr != nil {
		return model.Item{}, f.createErr
	}
	if strings.TrimSpace(content) == "" {
		return model.Item{}, apperr.Validation("app.create", "content must not be blank")
	}
	it := model.Item{ID: "item-1", Content: content, OwnerID: ownerID}
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeService) Like(_ context.Context, id string) (model.Item, error) {
	if f.likeErr != nil {
		return model.Item{}, f.likeErr
	}
	it, ok := f.items[id]
	if !ok {
		return model.Item{}, apperr.E(apperr.KindNotFound, "app.like", nil)
	}
	it = it.Liked()
	f.items[id] = it
	return it, nil
}

func (f *fakeService) TopHot(_ context.Context, n int) ([]model.Item, error) {
	f.lastLimit = n
	if f.hotErr != nil {
		return nil, f.hotErr
	}
	out := make([]model.Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestItemsAPI(t *testing.T) {
	Convey("Given the API over a service", t, func() {
		svc := newFakeService()
		h := api.NewServer(svc).Handler()

		Convey("When an item is created", func() {
			rec := do(h, http.MethodPost, "/items", `{"content":"hello","user_id":"u1"}`)

			Convey("Then it responds 201 with the item", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var body struct {
					Message string     `json:"message"`
					Item    model.Item `json:"item"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Message, ShouldEqual, "item created")
				So(body.Item.ID, ShouldEqual, "item-1")
				So(body.Item.OwnerID, ShouldEqual, "u1")
			})
		})

		Convey("When the body is not JSON", func() {
			rec := do(h, http.MethodPost, "/items", `{oops`)

			Convey("Then it responds 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the content is blank", func() {
			rec := do(h, http.MethodPost, "/items", `{"content":"  ","user_id":"u1"}`)

			Convey("Then the validation error maps to 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "validation_error")
			})
		})

		Convey("When an existing item is liked", func() {
			do(h, http.MethodPost, "/items", `{"content":"hello","user_id":"u1"}`)
			rec := do(h, http.MethodPost, "/items/item-1/like", "")

			Convey("Then it responds 200 with one more like", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var it model.Item
				So(json.Unmarshal(rec.Body.Bytes(), &it), ShouldBeNil)
				So(it.Likes, ShouldEqual, 1)
			})
		})

		Convey("When an unknown item is liked", func() {
			rec := do(h, http.MethodPost, "/items/nope/like", "")

			Convey("Then it responds 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a like keeps conflicting", func() {
			svc.likeErr = apperr.E(apperr.KindConflict, "app.like", nil)
			rec := do(h, http.MethodPost, "/items/item-1/like", "")

			Convey("Then it responds 409", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the hot list is requested", func() {
			do(h, http.MethodPost, "/items", `{"content":"hello","user_id":"u1"}`)
			rec := do(h, http.MethodGet, "/items/hot?limit=5", "")

			Convey("Then the limit is forwarded and entries are ranked", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(svc.lastLimit, ShouldEqual, 5)
				var body struct {
					Items []struct {
						Rank int    `json:"rank"`
						ID   string `json:"id"`
					} `json:"items"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Items, ShouldHaveLength, 1)
				So(body.Items[0].Rank, ShouldEqual, 1)
				So(body.Items[0].ID, ShouldEqual, "item-1")
			})
		})

		Convey("When no limit is given", func() {
			svc.lastLimit = -1
			rec := do(h, http.MethodGet, "/items/hot", "")

			Convey("Then the service default is requested", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(svc.lastLimit, ShouldEqual, 0)
			})
		})

		Convey("When the limit is not a number", func() {
			rec := do(h, http.MethodGet, "/items/hot?limit=ten", "")

			Convey("Then it responds 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store fails", func() {
			svc.hotErr = apperr.E(apperr.KindStore, "app.top_hot", context.DeadlineExceeded)
			rec := do(h, http.MethodGet, "/items/hot", "")

			Convey("Then it responds 500 without leaking the cause", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldNotContainSubstring, "deadline")
			})
		})

		Convey("When health is requested", func() {
			rec := do(h, http.MethodGet, "/healthz", "")

			Convey("Then the metrics exposition is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
