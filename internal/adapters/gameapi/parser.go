package gameapi

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/taptrack/internal/domain/masterdata"
	"github.com/okian/taptrack/internal/domain/model"
)

// borderExcludedRank is reported in the top100 section by convention and must
// never be taken from the border section.
const borderExcludedRank = 100

// ParserOption applies a configuration option to the Parser.
type ParserOption func(*Parser)

// WithClock replaces the observation clock. Used by tests.
func WithClock(clock func() time.Time) ParserOption {
	return func(p *Parser) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Parser converts raw payloads into normalized rankings for one polled
// target. Chapter-expanded targets are routed to their payload sub-section
// through master data.
type Parser struct {
	view  *masterdata.View
	clock func() time.Time
}

// NewParser creates a parser backed by the given master data view.
func NewParser(view *masterdata.View, opts ...ParserOption) *Parser {
	p := &Parser{
		view:  view,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts the top100 and border rankings addressed by id from a
// payload. All returned rankings share a single observation instant captured
// at the start of the call. Border entries at rank 100 are dropped.
func (p *Parser) Parse(ctx context.Context, region model.Region, id int, payload *Payload) (top, border []model.Ranking, err error) {
	if payload == nil || payload.Top100 == nil || payload.Border == nil {
		return nil, nil, fmt.Errorf("%w: payload sections missing", ErrParse)
	}

	now := p.clock()

	if !model.IsChapterID(id) {
		top = convert(payload.Top100.Rankings, now, false)
		border = convert(payload.Border.BorderRankings, now, true)
		return top, border, nil
	}

	chapterNo, eventID := model.SplitWLEventID(id)
	chapters, err := p.view.Chapters(region).AllBy(ctx, masterdata.KeyEventID, int64(eventID))
	if err != nil {
		return nil, nil, err
	}
	characterID := 0
	found := false
	for _, ch := range chapters {
		if ch.ChapterNo == chapterNo {
			characterID = ch.GameCharacterID
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: no chapter %d for event %d in master data", ErrParse, chapterNo, eventID)
	}

	var topEntries []RankingEntry
	found = false
	for _, sec := range payload.Top100.ChapterRankings {
		if sec.GameCharacterID == characterID {
			topEntries = sec.Rankings
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: top100 section for character %d missing", ErrParse, characterID)
	}

	var borderEntries []RankingEntry
	found = false
	for _, sec := range payload.Border.ChapterBorders {
		if sec.GameCharacterID == characterID {
			borderEntries = sec.BorderRankings
			found = true
			break
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: border section for character %d missing", ErrParse, characterID)
	}

	top = convert(topEntries, now, false)
	border = convert(borderEntries, now, true)
	return top, border, nil
}

// convert normalizes raw entries, dropping sentinel ranks and, for border
// slices, the rank reported in top100.
func convert(entries []RankingEntry, now time.Time, isBorder bool) []model.Ranking {
	out := make([]model.Ranking, 0, len(entries))
	for _, e := range entries {
		if e.Rank <= 0 {
			continue
		}
		if isBorder && e.Rank == borderExcludedRank {
			continue
		}
		out = append(out, model.Ranking{
			UID:        e.UserID.String(),
			Name:       e.Name,
			Score:      e.Score,
			Rank:       e.Rank,
			ObservedAt: now,
		})
	}
	return out
}
