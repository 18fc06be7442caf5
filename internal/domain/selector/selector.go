// Package selector decides which leaderboards a region must poll at a given
// instant, based on master data.
package selector

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/okian/taptrack/internal/domain/masterdata"
	"github.com/okian/taptrack/internal/domain/model"
)

// defaultGrace is the post-end recording window used when no option is given.
const defaultGrace = 60 * time.Minute

// minChaptersForExpansion: events with fewer chapters poll only the
// aggregate leaderboard.
const minChaptersForExpansion = 2

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithGrace sets the post-end recording window.
func WithGrace(grace time.Duration) Option {
	return func(s *Selector) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// Selector computes poll plans from master data.
type Selector struct {
	view  *masterdata.View
	grace time.Duration
}

// New creates a Selector over the given master data view.
func New(view *masterdata.View, opts ...Option) *Selector {
	s := &Selector{
		view:  view,
		grace: defaultGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the poll plan for a region at instant now. An empty plan
// means no event is currently within its recording window. For multi-chapter
// events the plan expands into the aggregate leaderboard plus one target per
// chapter still within its own recording window.
func (s *Selector) Select(ctx context.Context, region model.Region, now time.Time) (model.PollPlan, error) {
	events, err := s.view.Events(region).All(ctx)
	if err != nil {
		return model.PollPlan{}, err
	}

	// Total order: aggregate_at ascending, ties broken by ascending id.
	sort.Slice(events, func(i, j int) bool {
		if events[i].AggregateAt != events[j].AggregateAt {
			return events[i].AggregateAt < events[j].AggregateAt
		}
		return events[i].ID < events[j].ID
	})

	// A running event always outranks an ended one still inside grace:
	// the moment a successor starts, polling must move to it.
	var primary masterdata.Event
	found := false
	for _, e := range events {
		if e.StartTime().After(now) || now.After(e.AggregateTime()) {
			continue
		}
		primary = e
		found = true
		break
	}
	if !found {
		// Fall back to the most recently ended event still inside grace.
		// Strict comparison keeps the ascending-id tie-break intact.
		for _, e := range events {
			if e.StartTime().After(now) {
				continue
			}
			if now.After(e.AggregateTime().Add(s.grace)) {
				continue
			}
			if !found || e.AggregateAt > primary.AggregateAt {
				primary = e
				found = true
			}
		}
	}
	if !found {
		return model.PollPlan{}, nil
	}

	plan := model.PollPlan{EventID: primary.ID}

	// A region without multi-chapter events may not ship a chapters snapshot
	// at all; that is not an error, just an unexpanded plan.
	chapters, err := s.view.Chapters(region).AllBy(ctx, masterdata.KeyEventID, int64(primary.ID))
	if err != nil && !errors.Is(err, masterdata.ErrUnavailable) {
		return model.PollPlan{}, err
	}

	if len(chapters) < minChaptersForExpansion {
		plan.Targets = []model.PollTarget{{ID: primary.ID, AggregateAt: primary.AggregateTime()}}
		return plan, nil
	}

	plan.Targets = append(plan.Targets, model.PollTarget{ID: primary.ID, AggregateAt: primary.AggregateTime()})
	for _, ch := range chapters {
		if now.After(ch.AggregateTime().Add(s.grace)) {
			continue
		}
		plan.Targets = append(plan.Targets, model.PollTarget{
			ID:          model.WLEventID(ch.ChapterNo, primary.ID),
			AggregateAt: ch.AggregateTime(),
		})
	}
	return plan, nil
}
