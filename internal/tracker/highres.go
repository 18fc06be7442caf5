package tracker

import (
	"github.com/okian/taptrack/internal/domain/model"
)

// RankRange is an inclusive rank interval on one leaderboard.
type RankRange struct {
	From int
	To   int
}

// HighResFilter decides which rankings are worth storing on the dense
// cadence. A ranking qualifies when its rank falls in any configured range
// or its uid belongs to the watched set.
type HighResFilter struct {
	ranges []RankRange
	uids   map[string]struct{}
}

// NewHighResFilter builds a filter from rank ranges and watched uids.
func NewHighResFilter(ranges []RankRange, uids []string) *HighResFilter {
	f := &HighResFilter{ranges: ranges}
	if len(uids) > 0 {
		f.uids = make(map[string]struct{}, len(uids))
		for _, uid := range uids {
			f.uids[uid] = struct{}{}
		}
	}
	return f
}

// Match reports whether one ranking qualifies.
func (f *HighResFilter) Match(r model.Ranking) bool {
	for _, rng := range f.ranges {
		if r.Rank >= rng.From && r.Rank <= rng.To {
			return true
		}
	}
	if f.uids != nil {
		if _, ok := f.uids[r.UID]; ok {
			return true
		}
	}
	return false
}

// Filter keeps only the qualifying rankings.
func (f *HighResFilter) Filter(rankings []model.Ranking) []model.Ranking {
	out := make([]model.Ranking, 0, len(rankings))
	for _, r := range rankings {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
