// Package model contains domain models passed between layers.
package model

import "time"

// Region identifies one regional shard of the game. Each region has its own
// events, polling loop, database directory, and dedup cache namespace.
type Region string

// Known regional shards.
const (
	RegionJP Region = "jp"
	RegionEN Region = "en"
	RegionTW Region = "tw"
	RegionKR Region = "kr"
	RegionCN Region = "cn"
)

// MaxNameLength bounds stored player names, in runes.
const MaxNameLength = 32

// Ranking is one observed leaderboard row for an event or chapter.
type Ranking struct {
	UID        string    // player identifier, integer-coercible string
	Name       string    // player display name at observation time
	Score      int64     // non-negative, non-decreasing per (region, event, rank, uid)
	Rank       int       // positive leaderboard position
	ObservedAt time.Time // shared across all rankings of one parse call
}

// PollTarget addresses one leaderboard to record within a polled event:
// either the aggregate leaderboard (ID < 1000) or a chapter sub-leaderboard
// addressed by its synthetic wl event id.
type PollTarget struct {
	ID          int
	AggregateAt time.Time
}

// PollPlan is the Event Selector's answer for one region at one instant.
// An empty Targets slice means there is nothing to poll.
type PollPlan struct {
	EventID int // primary event id, always < 1000; used for the fetch
	Targets []PollTarget
}

// Empty reports whether the plan carries no work.
func (p PollPlan) Empty() bool { return len(p.Targets) == 0 }

// WLEventID forms the synthetic id addressing a chapter sub-leaderboard.
func WLEventID(chapterNo, eventID int) int { return chapterNo*1000 + eventID }

// SplitWLEventID recovers the chapter number and primary event id from a
// chapter-expanded id.
func SplitWLEventID(id int) (chapterNo, eventID int) { return id / 1000, id % 1000 }

// IsChapterID reports whether id addresses a chapter sub-leaderboard rather
// than an aggregate leaderboard.
func IsChapterID(id int) bool { return id >= 1000 }

// PrimaryEventID maps any polled id, aggregate or chapter-expanded, back to
// the primary event id.
func PrimaryEventID(id int) int { return id % 1000 }

// TruncateName bounds a player name to MaxNameLength runes.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxNameLength {
		return name
	}
	return string(runes[:MaxNameLength])
}
