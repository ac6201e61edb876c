package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/hotitems/internal/config"
	"github.com/okian/hotitems/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func memoryEnv(t *testing.T, db string) {
	t.Setenv("HOTITEMS_ADDR", ":0")
	t.Setenv("HOTITEMS_STORE_DSN", "file:"+db+"?mode=memory&cache=shared")
	t.Setenv("HOTITEMS_CACHE_BACKEND", config.CacheMemory)
	t.Setenv("HOTITEMS_RESYNC_SCHEDULER", config.SchedulerTicker)
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a configuration on sqlite and the in-memory cache", t, func() {
		memoryEnv(t, "main_test_build")
		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the application is built and started", func() {
			a, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer a.close()
			convey.So(a.start(ctx), convey.ShouldBeNil)
			defer a.shutdown()

			convey.Convey("Then an item created over HTTP shows up as hot", func() {
				rec := httptest.NewRecorder()
				body := strings.NewReader(`{"content":"hello","user_id":"u1"}`)
				a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", body))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)

				rec = httptest.NewRecorder()
				a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/hot", http.NoBody))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				var hot struct {
					Items []struct {
						Content string `json:"content"`
					} `json:"items"`
				}
				convey.So(json.Unmarshal(rec.Body.Bytes(), &hot), convey.ShouldBeNil)
				convey.So(hot.Items, convey.ShouldHaveLength, 1)
				convey.So(hot.Items[0].Content, convey.ShouldEqual, "hello")
			})

			convey.Convey("Then the docs and health routes are served", func() {
				for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs"} {
					rec := httptest.NewRecorder()
					a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then no CDC pipeline is wired", func() {
				convey.So(a.pool, convey.ShouldBeNil)
				convey.So(a.source, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given CDC is enabled", t, func() {
		memoryEnv(t, "main_test_cdc")
		t.Setenv("HOTITEMS_CDC_ENABLED", "true")
		t.Setenv("HOTITEMS_CDC_TIMEZONE", "Asia/Shanghai")
		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the application is built", func() {
			a, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer a.close()

			convey.Convey("Then the queue, workers and consumer are wired", func() {
				convey.So(a.queue, convey.ShouldNotBeNil)
				convey.So(a.pool.Size(), convey.ShouldEqual, cfg.CDCWorkers)
				convey.So(a.source, convey.ShouldNotBeNil)
				convey.So(a.source.Close(), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given an unsupported store driver", t, func() {
		memoryEnv(t, "main_test_bad")
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		cfg.StoreDriver = "oracle"

		convey.Convey("Then build fails", func() {
			_, err := build(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
