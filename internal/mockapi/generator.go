package mockapi

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/taptrack/internal/adapters/gameapi"
)

// Score growth tuning.
const (
	minRatePerStep      = 200
	rateRangePerStep    = 4800
	jitterRangePerStep  = 150
	chapterScoreDivisor = 3
	characterIDBase     = 100
	uidBase             = 100_000_000
)

type player struct {
	uid     int64
	name    string
	rate    int64
	phase   int64
	chapter int // 1-based; 0 when the event has no chapters
}

// Generator produces deterministic leaderboard payloads. Two generators
// built from the same config agree on every snapshot, which makes runs
// reproducible.
type Generator struct {
	cfg     Config
	start   time.Time
	players []player
}

// NewGenerator builds the simulated player pool from the config seed.
func NewGenerator(cfg Config, start time.Time) *Generator {
	cfg.normalize()
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducibility beats entropy here

	players := make([]player, cfg.Players)
	for i := range players {
		// Index keeps uids collision-free; the random tail keeps them
		// looking like real account ids.
		p := player{
			uid:   uidBase + int64(i)*1000 + rng.Int63n(1000),
			name:  fmt.Sprintf("player-%04d", i),
			rate:  minRatePerStep + rng.Int63n(rateRangePerStep),
			phase: rng.Int63n(jitterRangePerStep),
		}
		if cfg.Chapters > 0 {
			p.chapter = i%cfg.Chapters + 1
		}
		players[i] = p
	}

	return &Generator{cfg: cfg, start: start, players: players}
}

// Snapshot renders the leaderboard as it stands at the given instant.
func (g *Generator) Snapshot(now time.Time) *gameapi.Payload {
	steps := int64(now.Sub(g.start) / g.cfg.StepInterval)
	if steps < 0 {
		steps = 0
	}

	type scored struct {
		player
		score int64
	}
	rows := make([]scored, len(g.players))
	for i, p := range g.players {
		rows[i] = scored{player: p, score: g.scoreAt(p, steps)}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].uid < rows[j].uid
	})

	entry := func(r scored, rank int, score int64) gameapi.RankingEntry {
		return gameapi.RankingEntry{
			UserID: json.Number(fmt.Sprintf("%d", r.uid)),
			Name:   r.name,
			Score:  score,
			Rank:   rank,
		}
	}

	top := &gameapi.TopSection{}
	border := &gameapi.BorderSection{}

	limit := g.cfg.TopSize
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		top.Rankings = append(top.Rankings, entry(rows[i], i+1, rows[i].score))
	}
	for _, rank := range g.cfg.BorderRanks {
		if rank <= len(rows) {
			border.BorderRankings = append(border.BorderRankings, entry(rows[rank-1], rank, rows[rank-1].score))
		}
	}

	for chapter := 1; chapter <= g.cfg.Chapters; chapter++ {
		var sub []scored
		for _, r := range rows {
			if r.chapter == chapter {
				sub = append(sub, scored{player: r.player, score: r.score / chapterScoreDivisor})
			}
		}
		charID := characterIDBase + chapter

		cr := gameapi.ChapterRankings{GameCharacterID: charID}
		subLimit := g.cfg.TopSize
		if subLimit > len(sub) {
			subLimit = len(sub)
		}
		for i := 0; i < subLimit; i++ {
			cr.Rankings = append(cr.Rankings, entry(sub[i], i+1, sub[i].score))
		}
		top.ChapterRankings = append(top.ChapterRankings, cr)

		cb := gameapi.ChapterBorders{GameCharacterID: charID}
		for _, rank := range g.cfg.BorderRanks {
			if rank <= len(sub) {
				cb.BorderRankings = append(cb.BorderRankings, entry(sub[rank-1], rank, sub[rank-1].score))
			}
		}
		border.ChapterBorders = append(border.ChapterBorders, cb)
	}

	return &gameapi.Payload{Top100: top, Border: border}
}

// scoreAt is monotonic in steps so leaderboards only ever grow.
func (g *Generator) scoreAt(p player, steps int64) int64 {
	jitter := (p.phase * steps) % jitterRangePerStep
	return p.rate*steps + jitter
}
