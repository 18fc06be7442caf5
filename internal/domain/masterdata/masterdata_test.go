package masterdata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/taptrack/internal/domain/masterdata"
	"github.com/okian/taptrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func writeSnapshot(t *testing.T, root string, region, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, region)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// touch bumps the file mtime past filesystem timestamp granularity.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func TestEventsCollection(t *testing.T) {
	Convey("Given an events snapshot for one region", t, func() {
		root := t.TempDir()
		ctx := context.Background()
		path := writeSnapshot(t, root, "jp", "events.json", `[
			{"id": 100, "name": "encore", "startAt": 1000, "aggregateAt": 2000},
			{"id": 101, "name": "reprise", "startAt": 3000, "aggregateAt": 4000}
		]`)
		view := masterdata.NewView(root)
		events := view.Events(model.RegionJP)

		Convey("When listing all records", func() {
			all, err := events.All(ctx)

			Convey("Then every record should be decoded", func() {
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, 100)
				So(all[0].StartTime().UnixMilli(), ShouldEqual, 1000)
				So(all[1].AggregateTime().UnixMilli(), ShouldEqual, 4000)
			})
		})

		Convey("When finding by id", func() {
			e, ok, err := events.FindByID(ctx, 101)

			Convey("Then the matching record should be returned", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(e.Name, ShouldEqual, "reprise")
			})
		})

		Convey("When finding a missing id", func() {
			_, ok, err := events.FindByID(ctx, 999)

			Convey("Then no record and no error should be returned", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When looking up an unindexed key", func() {
			_, _, err := events.FindBy(ctx, "bogus", 1)

			Convey("Then it should fail with ErrUnknownKey", func() {
				So(errors.Is(err, masterdata.ErrUnknownKey), ShouldBeTrue)
			})
		})

		Convey("When the file changes on disk", func() {
			writeSnapshot(t, root, "jp", "events.json", `[
				{"id": 102, "name": "finale", "startAt": 5000, "aggregateAt": 6000}
			]`)
			touch(t, path, 2*time.Second)
			all, err := events.All(ctx)

			Convey("Then the collection should reload", func() {
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
				So(all[0].ID, ShouldEqual, 102)
			})
		})

		Convey("When the file becomes unparsable", func() {
			writeSnapshot(t, root, "jp", "events.json", `{not json`)
			touch(t, path, 2*time.Second)
			_, err := events.All(ctx)

			Convey("Then access should fail with ErrUnavailable", func() {
				So(errors.Is(err, masterdata.ErrUnavailable), ShouldBeTrue)
			})

			Convey("And a repaired file should be served again", func() {
				writeSnapshot(t, root, "jp", "events.json", `[
					{"id": 103, "name": "repaired", "startAt": 1, "aggregateAt": 2}
				]`)
				touch(t, path, 4*time.Second)
				all, err := events.All(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
				So(all[0].ID, ShouldEqual, 103)
			})
		})

		Convey("When the file is missing entirely", func() {
			missing := view.Events(model.RegionEN)
			_, err := missing.All(ctx)

			Convey("Then access should fail with ErrUnavailable", func() {
				So(errors.Is(err, masterdata.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestChaptersCollection(t *testing.T) {
	Convey("Given a chapters snapshot for one region", t, func() {
		root := t.TempDir()
		ctx := context.Background()
		writeSnapshot(t, root, "jp", "worldBlooms.json", `[
			{"id": 1, "eventId": 150, "gameCharacterId": 17, "chapterNo": 1, "chapterStartAt": 1000, "aggregateAt": 2000},
			{"id": 2, "eventId": 150, "gameCharacterId": 23, "chapterNo": 2, "chapterStartAt": 2000, "aggregateAt": 3000},
			{"id": 3, "eventId": 160, "gameCharacterId": 5, "chapterNo": 1, "chapterStartAt": 4000, "aggregateAt": 5000}
		]`)
		view := masterdata.NewView(root)
		chapters := view.Chapters(model.RegionJP)

		Convey("When collecting chapters of one event", func() {
			got, err := chapters.AllBy(ctx, masterdata.KeyEventID, 150)

			Convey("Then only that event's chapters should be returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ChapterNo, ShouldEqual, 1)
				So(got[1].GameCharacterID, ShouldEqual, 23)
			})
		})

		Convey("When batch-collecting by character ids", func() {
			got, err := chapters.CollectBy(ctx, masterdata.KeyGameCharacterID, []int64{23, 5})

			Convey("Then records should come back in value order", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].GameCharacterID, ShouldEqual, 23)
				So(got[1].GameCharacterID, ShouldEqual, 5)
			})
		})

		Convey("When finding first and last by a shared key", func() {
			first, ok1, err1 := chapters.FindBy(ctx, masterdata.KeyEventID, 150)
			last, ok2, err2 := chapters.FindLastBy(ctx, masterdata.KeyEventID, 150)

			Convey("Then file order should decide first and last", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(first.ChapterNo, ShouldEqual, 1)
				So(last.ChapterNo, ShouldEqual, 2)
			})
		})
	})
}
