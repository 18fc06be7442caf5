package gameapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/okian/taptrack/internal/adapters/gameapi"
	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const validBody = `{
	"top100": {"rankings": [{"userId": 42, "name": "Alice", "score": 1000, "rank": 1}]},
	"border": {"borderRankings": [{"userId": 7, "name": "Bob", "score": 500, "rank": 200}]}
}`

func TestClientFetch(t *testing.T) {
	Convey("Given a game API serving a valid payload", t, func() {
		ctx := context.Background()
		var gotAuth, gotPath atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth.Store(r.Header.Get("Authorization"))
			gotPath.Store(r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(validBody))
		}))
		defer srv.Close()

		client := gameapi.NewClient(
			map[model.Region]string{model.RegionJP: srv.URL + "/event/{event_id}/ranking"},
			"secret-token",
			gameapi.WithRetry(3, 0),
		)
		defer client.Close()

		Convey("When fetching an event", func() {
			payload, err := client.Fetch(ctx, model.RegionJP, 100)

			Convey("Then the payload should be decoded and the request authenticated", func() {
				So(err, ShouldBeNil)
				So(payload.Top100.Rankings, ShouldHaveLength, 1)
				So(payload.Border.BorderRankings, ShouldHaveLength, 1)
				So(gotAuth.Load(), ShouldEqual, "Bearer secret-token")
				So(gotPath.Load(), ShouldEqual, "/event/100/ranking")
			})
		})

		Convey("When fetching for a region with no URL", func() {
			_, err := client.Fetch(ctx, model.RegionEN, 100)

			Convey("Then it should fail with ErrFetch", func() {
				So(errors.Is(err, gameapi.ErrFetch), ShouldBeTrue)
			})
		})
	})

	Convey("Given a game API that fails twice then recovers", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(validBody))
		}))
		defer srv.Close()

		client := gameapi.NewClient(
			map[model.Region]string{model.RegionJP: srv.URL + "/{event_id}"},
			"t",
			gameapi.WithRetry(3, 0),
		)

		Convey("When fetching", func() {
			payload, err := client.Fetch(context.Background(), model.RegionJP, 1)

			Convey("Then the retry budget should absorb the failures", func() {
				So(err, ShouldBeNil)
				So(payload, ShouldNotBeNil)
				So(calls.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a game API that always fails", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := gameapi.NewClient(
			map[model.Region]string{model.RegionJP: srv.URL + "/{event_id}"},
			"t",
			gameapi.WithRetry(3, 0),
		)

		Convey("When fetching", func() {
			_, err := client.Fetch(context.Background(), model.RegionJP, 1)

			Convey("Then it should fail with ErrFetch after exhausting attempts", func() {
				So(errors.Is(err, gameapi.ErrFetch), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a game API returning a payload missing a section", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"top100": {"rankings": []}}`))
		}))
		defer srv.Close()

		client := gameapi.NewClient(
			map[model.Region]string{model.RegionJP: srv.URL + "/{event_id}"},
			"t",
			gameapi.WithRetry(3, 0),
		)

		Convey("When fetching", func() {
			_, err := client.Fetch(context.Background(), model.RegionJP, 1)

			Convey("Then it should fail hard with ErrParse and not retry", func() {
				So(errors.Is(err, gameapi.ErrParse), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})
	})
}
