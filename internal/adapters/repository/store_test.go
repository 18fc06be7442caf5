package repository_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/okian/taptrack/internal/adapters/repository"
	"github.com/okian/taptrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T, eventID int) *repository.Store {
	t.Helper()
	root := t.TempDir()
	s, err := repository.Open(context.Background(), repository.Path(root, model.RegionJP, eventID), model.RegionJP, eventID)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func row(uid string, rank int, score int64) model.Ranking {
	return model.Ranking{UID: uid, Name: "player-" + uid, Score: score, Rank: rank}
}

func TestUpdateRankings(t *testing.T) {
	Convey("Given a fresh store", t, func() {
		ctx := context.Background()
		s := openStore(t, 150)
		t0 := time.Unix(1_700_000_000, 0)

		Convey("When writing a first batch", func() {
			inserts, rebinds, err := s.UpdateRankings(ctx, t0, []model.Ranking{
				row("1", 1, 100), row("2", 2, 90), row("3", 3, 80),
			})

			Convey("Then every ranking becomes a new row", func() {
				So(err, ShouldBeNil)
				So(inserts, ShouldEqual, 3)
				So(rebinds, ShouldEqual, 0)
			})

			Convey("And writing the identical batch at a later tick", func() {
				t1 := t0.Add(2 * time.Minute)
				inserts, rebinds, err := s.UpdateRankings(ctx, t1, []model.Ranking{
					row("1", 1, 100), row("2", 2, 90), row("3", 3, 80),
				})

				Convey("Then every rank is rebound instead of inserted", func() {
					So(err, ShouldBeNil)
					So(inserts, ShouldEqual, 0)
					So(rebinds, ShouldEqual, 3)
				})

				Convey("And the head rows point at the later tick", func() {
					So(err, ShouldBeNil)
					heads, err := s.QueryLatestRanking(ctx, nil)
					So(err, ShouldBeNil)
					So(heads, ShouldHaveLength, 3)
					for _, h := range heads {
						So(h.ObservedAt.Unix(), ShouldEqual, t1.Unix())
					}
				})
			})

			Convey("And a score change on one rank", func() {
				t1 := t0.Add(2 * time.Minute)
				inserts, rebinds, err := s.UpdateRankings(ctx, t1, []model.Ranking{
					row("1", 1, 120), row("2", 2, 90),
				})

				Convey("Then only the changed rank inserts", func() {
					So(err, ShouldBeNil)
					So(inserts, ShouldEqual, 1)
					So(rebinds, ShouldEqual, 1)
				})

				Convey("And rank 1 history keeps both observations", func() {
					So(err, ShouldBeNil)
					rows, err := s.QueryRanking(ctx, repository.Filter{Ranks: []int{1}})
					So(err, ShouldBeNil)
					So(rows, ShouldHaveLength, 2)
					So(rows[0].Score, ShouldEqual, 100)
					So(rows[1].Score, ShouldEqual, 120)
				})
			})

			Convey("And a holder change at an unchanged score", func() {
				t1 := t0.Add(2 * time.Minute)
				inserts, rebinds, err := s.UpdateRankings(ctx, t1, []model.Ranking{
					row("9", 1, 100),
				})

				Convey("Then the rank inserts a new row", func() {
					So(err, ShouldBeNil)
					So(inserts, ShouldEqual, 1)
					So(rebinds, ShouldEqual, 0)

					heads, err := s.QueryLatestRanking(ctx, []int{1})
					So(err, ShouldBeNil)
					So(heads, ShouldHaveLength, 1)
					So(heads[0].UID, ShouldEqual, "9")
				})
			})
		})

		Convey("When writing an empty batch", func() {
			_, _, err := s.UpdateRankings(ctx, t0, nil)

			Convey("Then it reports the sentinel error", func() {
				So(err, ShouldEqual, repository.ErrNoRankings)
			})
		})
	})
}

func TestUserNaming(t *testing.T) {
	Convey("Given a store with one observed player", t, func() {
		ctx := context.Background()
		s := openStore(t, 150)
		t0 := time.Unix(1_700_000_000, 0)

		_, _, err := s.UpdateRankings(ctx, t0, []model.Ranking{
			{UID: "7", Name: "before", Score: 50, Rank: 1},
		})
		So(err, ShouldBeNil)

		Convey("When the player renames", func() {
			_, _, err := s.UpdateRankings(ctx, t0.Add(time.Minute), []model.Ranking{
				{UID: "7", Name: "after", Score: 60, Rank: 1},
			})
			So(err, ShouldBeNil)

			Convey("Then history replays under the newest name", func() {
				rows, err := s.QueryRanking(ctx, repository.Filter{UID: "7"})
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Name, ShouldEqual, "after")
				So(rows[1].Name, ShouldEqual, "after")
			})
		})

		Convey("When a name exceeds the storage limit", func() {
			long := strings.Repeat("あ", 40)
			_, _, err := s.UpdateRankings(ctx, t0.Add(time.Minute), []model.Ranking{
				{UID: "8", Name: long, Score: 10, Rank: 2},
			})
			So(err, ShouldBeNil)

			Convey("Then the stored name is cut at the rune limit", func() {
				rows, err := s.QueryRanking(ctx, repository.Filter{UID: "8"})
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].Name, ShouldEqual, strings.Repeat("あ", model.MaxNameLength))
			})
		})
	})
}

func TestQueries(t *testing.T) {
	Convey("Given a store with a few ticks of history", t, func() {
		ctx := context.Background()
		s := openStore(t, 150)
		t0 := time.Unix(1_700_000_000, 0)

		ticks := []struct {
			at    time.Time
			batch []model.Ranking
		}{
			{t0, []model.Ranking{row("1", 1, 100), row("2", 2, 90)}},
			{t0.Add(2 * time.Minute), []model.Ranking{row("1", 1, 110)}},
			{t0.Add(4 * time.Minute), []model.Ranking{row("1", 1, 120), row("3", 2, 95)}},
		}
		for _, tick := range ticks {
			_, _, err := s.UpdateRankings(ctx, tick.at, tick.batch)
			So(err, ShouldBeNil)
		}

		Convey("QueryRanking honors time bounds", func() {
			rows, err := s.QueryRanking(ctx, repository.Filter{
				Since: t0.Add(time.Minute),
				Until: t0.Add(3 * time.Minute),
			})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Score, ShouldEqual, 110)
		})

		Convey("QueryRanking honors limit and order", func() {
			rows, err := s.QueryRanking(ctx, repository.Filter{
				Ranks:      []int{1},
				Descending: true,
				Limit:      1,
			})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Score, ShouldEqual, 120)
		})

		Convey("QueryLatestRanking selects each head", func() {
			rows, err := s.QueryLatestRanking(ctx, nil)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[0].Score, ShouldEqual, 120)
			So(rows[1].Rank, ShouldEqual, 2)
			So(rows[1].UID, ShouldEqual, "3")
		})

		Convey("QueryFirstRankingAfter finds the first later observation", func() {
			rows, err := s.QueryFirstRankingAfter(ctx, t0, []int{1})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Score, ShouldEqual, 110)
		})

		Convey("QueryRanksWithInterval keeps one row per bucket", func() {
			rows, err := s.QueryRanksWithInterval(ctx, 10*time.Minute, []int{1})
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Score, ShouldEqual, 100)
		})

		Convey("QueryRanksWithInterval rejects sub-second intervals", func() {
			_, err := s.QueryRanksWithInterval(ctx, 0, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVacuum(t *testing.T) {
	Convey("Given a store with data", t, func() {
		ctx := context.Background()
		s := openStore(t, 150)
		_, _, err := s.UpdateRankings(ctx, time.Unix(1_700_000_000, 0), []model.Ranking{row("1", 1, 100)})
		So(err, ShouldBeNil)

		Convey("Vacuum succeeds", func() {
			So(s.Vacuum(ctx), ShouldBeNil)
		})
	})
}
