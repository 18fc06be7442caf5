// Package masterdata exposes indexed, read-only views over per-region master
// data snapshots. Snapshots are JSON files produced out-of-band; every access
// checks the backing file's mtime and reloads when it changed.
package masterdata

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/taptrack/internal/domain/model"
)

// Snapshot file names under <root>/<region>/.
const (
	eventsFile   = "events.json"
	chaptersFile = "worldBlooms.json"
)

// Event mirrors one entry of events.json. Timestamps are epoch milliseconds.
type Event struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	StartAt     int64  `json:"startAt"`
	AggregateAt int64  `json:"aggregateAt"`
}

// StartTime returns the event's scoring window start.
func (e Event) StartTime() time.Time { return time.UnixMilli(e.StartAt) }

// AggregateTime returns the inclusive end of the event's scoring window.
func (e Event) AggregateTime() time.Time { return time.UnixMilli(e.AggregateAt) }

// Chapter mirrors one entry of worldBlooms.json: a per-character chapter of a
// multi-chapter event.
type Chapter struct {
	ID              int   `json:"id"`
	EventID         int   `json:"eventId"`
	GameCharacterID int   `json:"gameCharacterId"`
	ChapterNo       int   `json:"chapterNo"`
	ChapterStartAt  int64 `json:"chapterStartAt"`
	AggregateAt     int64 `json:"aggregateAt"`
}

// StartTime returns the chapter's scoring window start.
func (c Chapter) StartTime() time.Time { return time.UnixMilli(c.ChapterStartAt) }

// AggregateTime returns the inclusive end of the chapter's scoring window.
func (c Chapter) AggregateTime() time.Time { return time.UnixMilli(c.AggregateAt) }

// View hands out lazily constructed per-region collections. Collections are
// cached; the underlying files are still re-checked on every access.
type View struct {
	root string

	mu       sync.Mutex
	events   map[model.Region]*Collection[Event]
	chapters map[model.Region]*Collection[Chapter]
}

// NewView creates a view rooted at the master data directory.
func NewView(root string) *View {
	return &View{
		root:     root,
		events:   make(map[model.Region]*Collection[Event]),
		chapters: make(map[model.Region]*Collection[Chapter]),
	}
}

// Events returns the events collection for a region.
func (v *View) Events(region model.Region) *Collection[Event] {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.events[region]
	if !ok {
		c = newCollection(
			filepath.Join(v.root, string(region), eventsFile),
			map[string]func(Event) int64{
				KeyID:          func(e Event) int64 { return int64(e.ID) },
				KeyAggregateAt: func(e Event) int64 { return e.AggregateAt },
			},
		)
		v.events[region] = c
	}
	return c
}

// Chapters returns the world bloom chapters collection for a region.
func (v *View) Chapters(region model.Region) *Collection[Chapter] {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.chapters[region]
	if !ok {
		c = newCollection(
			filepath.Join(v.root, string(region), chaptersFile),
			map[string]func(Chapter) int64{
				KeyID:              func(c Chapter) int64 { return int64(c.ID) },
				KeyEventID:         func(c Chapter) int64 { return int64(c.EventID) },
				KeyGameCharacterID: func(c Chapter) int64 { return int64(c.GameCharacterID) },
			},
		)
		v.chapters[region] = c
	}
	return c
}

// Indexed key names shared by collections.
const (
	KeyID              = "id"
	KeyEventID         = "event_id"
	KeyAggregateAt     = "aggregate_at"
	KeyGameCharacterID = "game_character_id"
)
