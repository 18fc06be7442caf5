package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/taptrack/internal/adapters/http/api"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "open_stores": 2}
}

func TestOpsServer(t *testing.T) {
	Convey("Given a registered ops server", t, func() {
		mux := http.NewServeMux()
		api.NewServer(fakeStats{}).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("GET /healthz reports ok", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body map[string]string
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("POST /healthz is rejected", func() {
			resp, err := http.Post(srv.URL+"/healthz", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /stats returns the provider's snapshot", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body map[string]interface{}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body["started"], ShouldEqual, true)
			So(body["open_stores"], ShouldEqual, 2)
		})

		Convey("GET /metrics serves the Prometheus registry", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
