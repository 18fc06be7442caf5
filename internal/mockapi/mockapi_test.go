package mockapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/taptrack/internal/adapters/gameapi"
	"github.com/okian/taptrack/internal/domain/masterdata"
	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/internal/mockapi"
	"github.com/okian/taptrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators built from the same config", t, func() {
		cfg := mockapi.Config{EventID: 150, Chapters: 2, Players: 50, TopSize: 10, Seed: 7}
		start := time.Unix(1_700_000_000, 0)
		a := mockapi.NewGenerator(cfg, start)
		b := mockapi.NewGenerator(cfg, start)

		Convey("Then snapshots at the same instant agree", func() {
			at := start.Add(5 * time.Minute)
			sa, _ := json.Marshal(a.Snapshot(at))
			sb, _ := json.Marshal(b.Snapshot(at))
			So(string(sa), ShouldEqual, string(sb))
		})

		Convey("Then a snapshot carries ordered top rows and chapter sections", func() {
			p := a.Snapshot(start.Add(10 * time.Minute))
			So(p.Top100, ShouldNotBeNil)
			So(p.Border, ShouldNotBeNil)
			So(p.Top100.Rankings, ShouldHaveLength, 10)
			for i, r := range p.Top100.Rankings {
				So(r.Rank, ShouldEqual, i+1)
				if i > 0 {
					So(r.Score, ShouldBeLessThanOrEqualTo, p.Top100.Rankings[i-1].Score)
				}
			}
			So(p.Top100.ChapterRankings, ShouldHaveLength, 2)
			So(p.Border.ChapterBorders, ShouldHaveLength, 2)
		})

		Convey("Then scores never move backwards", func() {
			early := a.Snapshot(start.Add(5 * time.Minute))
			late := a.Snapshot(start.Add(50 * time.Minute))

			byUID := make(map[string]int64)
			for _, r := range early.Top100.Rankings {
				byUID[r.UserID.String()] = r.Score
			}
			for _, r := range late.Top100.Rankings {
				if prev, ok := byUID[r.UserID.String()]; ok {
					So(r.Score, ShouldBeGreaterThanOrEqualTo, prev)
				}
			}
		})
	})
}

func TestServer(t *testing.T) {
	Convey("Given a running mock API", t, func() {
		ctx := context.Background()
		cfg := mockapi.Config{Addr: "127.0.0.1:0", EventID: 150, Players: 50, TopSize: 10, Seed: 1}
		srv := mockapi.NewServer(cfg, time.Now().Add(-time.Hour))
		So(srv.Start(ctx), ShouldBeNil)
		defer srv.Stop()

		Convey("The rankings route returns a parseable payload", func() {
			resp, err := http.Get(srv.URL() + "/event/150/rankings")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var p gameapi.Payload
			So(json.NewDecoder(resp.Body).Decode(&p), ShouldBeNil)
			So(p.Top100, ShouldNotBeNil)
			So(p.Top100.Rankings, ShouldHaveLength, 10)
		})

		Convey("Unknown events 404", func() {
			resp, err := http.Get(srv.URL() + "/event/999/rankings")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestWriteMasterData(t *testing.T) {
	Convey("Given a chapter event config", t, func() {
		root := t.TempDir()
		cfg := mockapi.Config{EventID: 150, Chapters: 3}
		start := time.Unix(1_700_000_000, 0)

		Convey("When writing master data", func() {
			So(mockapi.WriteMasterData(cfg, root, "jp", start, 9*24*time.Hour), ShouldBeNil)

			Convey("Then both snapshot files load through the view", func() {
				for _, name := range []string{"events.json", "worldBlooms.json"} {
					_, err := os.Stat(filepath.Join(root, "jp", name))
					So(err, ShouldBeNil)
				}

				view := masterdata.NewView(root)
				events, err := view.Events(model.RegionJP).All(context.Background())
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].ID, ShouldEqual, 150)

				chapters, err := view.Chapters(model.RegionJP).All(context.Background())
				So(err, ShouldBeNil)
				So(chapters, ShouldHaveLength, 3)
				So(chapters[2].ChapterNo, ShouldEqual, 3)
			})
		})
	})
}
