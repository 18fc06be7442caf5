// Package tracker runs the per-region polling loop: select the active
// event, fetch its leaderboard, parse, deduplicate, and persist.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/okian/taptrack/internal/adapters/gameapi"
	"github.com/okian/taptrack/internal/adapters/repository"
	"github.com/okian/taptrack/internal/domain/dedupe"
	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/pkg/logger"
	"github.com/okian/taptrack/pkg/metrics"
)

const (
	defaultNormalInterval = 2 * time.Minute
	minSleep              = 50 * time.Millisecond
)

// Fetcher retrieves one raw leaderboard payload for an event.
type Fetcher interface {
	Fetch(ctx context.Context, region model.Region, eventID int) (*gameapi.Payload, error)
}

// Parser extracts rankings for one poll target out of a payload.
type Parser interface {
	Parse(ctx context.Context, region model.Region, id int, payload *gameapi.Payload) (top, border []model.Ranking, err error)
}

// Planner decides what to poll for a region at a given instant.
type Planner interface {
	Select(ctx context.Context, region model.Region, now time.Time) (model.PollPlan, error)
}

// Tracker owns the schedule of one region. Ticks are serial; only store
// writes within a single tick run in parallel.
type Tracker struct {
	region  model.Region
	planner Planner
	fetcher Fetcher
	parser  Parser
	stores  *repository.Registry
	cache   *dedupe.Cache

	normal  time.Duration
	highRes time.Duration
	filter  *HighResFilter
	clock   func() time.Time
	log     logger.Logger

	nextNormal  time.Time
	nextHighRes time.Time
}

// New creates a tracker for the region. High resolution stays disabled
// unless WithHighRes is given.
func New(region model.Region, planner Planner, fetcher Fetcher, parser Parser, stores *repository.Registry, cache *dedupe.Cache, opts ...Option) *Tracker {
	t := &Tracker{
		region:  region,
		planner: planner,
		fetcher: fetcher,
		parser:  parser,
		stores:  stores,
		cache:   cache,
		normal:  defaultNormalInterval,
		clock:   time.Now,
		log:     logger.Get().Named("tracker." + string(region)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run drives ticks until the context is canceled.
func (t *Tracker) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next := t.Tick(ctx)
		sleep := next.Sub(t.clock())
		if sleep < minSleep {
			sleep = minSleep
		}
		timer.Reset(sleep)
	}
}

// Tick performs one poll cycle and returns the next wake time.
func (t *Tracker) Tick(ctx context.Context) time.Time {
	start := time.Now()
	now := t.clock()

	plan, err := t.planner.Select(ctx, t.region, now)
	if err != nil {
		t.log.Error(ctx, "event selection failed", logger.Error(err))
		t.nextNormal = now.Add(t.normal)
		return t.nextNormal
	}
	if plan.Empty() {
		if err := t.stores.CloseAll(t.region); err != nil {
			t.log.Warn(ctx, "closing idle stores failed", logger.Error(err))
		}
		t.nextNormal = now.Add(t.normal)
		return t.nextNormal
	}

	t.cache.EvictNonCurrent(ctx, t.region, plan.EventID)
	if err := t.stores.CloseStale(t.region, plan.EventID); err != nil {
		t.log.Warn(ctx, "closing stale stores failed", logger.Error(err))
	}

	isHighRes := t.filter != nil && now.Before(t.nextNormal)
	cadence := "normal"
	if isHighRes {
		cadence = "highres"
	}
	metrics.RecordTick(string(t.region), cadence)

	payload, err := t.fetcher.Fetch(ctx, t.region, plan.EventID)
	if err != nil {
		metrics.RecordFetchError(string(t.region))
		t.log.Error(ctx, "leaderboard fetch failed",
			logger.Int("event_id", plan.EventID),
			logger.Error(err))
		// timers stay put so the next cycle retries the same window
		return now.Add(t.normal)
	}

	var wg sync.WaitGroup
	for _, target := range plan.Targets {
		top, border, err := t.parser.Parse(ctx, t.region, target.ID, payload)
		if err != nil {
			metrics.RecordParseError(string(t.region))
			t.log.Warn(ctx, "payload parse failed",
				logger.Int("target_id", target.ID),
				logger.Error(err))
			continue
		}

		all := append(top, border...)
		if isHighRes {
			all = t.filter.Filter(all)
		}
		changed := t.cache.FilterAndUpdate(ctx, t.region, target.ID, all)
		metrics.UpdateDedupeCacheSize(t.cache.Size())
		if len(changed) == 0 {
			continue
		}

		store, err := t.stores.Get(ctx, t.region, target.ID)
		if err != nil {
			metrics.RecordStoreError(string(t.region))
			t.log.Error(ctx, "store open failed",
				logger.Int("target_id", target.ID),
				logger.Error(err))
			continue
		}

		wg.Add(1)
		go t.persist(ctx, &wg, store, now, changed)
	}
	wg.Wait()

	metrics.ObserveTickDuration(string(t.region), float64(time.Since(start).Milliseconds()))

	if !isHighRes {
		t.nextNormal = now.Add(t.normal)
	}
	if t.filter != nil {
		t.nextHighRes = now.Add(t.highRes)
	}

	next := t.nextNormal
	if t.filter != nil && t.nextHighRes.Before(next) {
		next = t.nextHighRes
	}
	return next
}

func (t *Tracker) persist(ctx context.Context, wg *sync.WaitGroup, store *repository.Store, ts time.Time, changed []model.Ranking) {
	defer wg.Done()

	start := time.Now()
	inserts, rebinds, err := store.UpdateRankings(ctx, ts, changed)
	if err != nil {
		metrics.RecordStoreError(string(t.region))
		t.log.Error(ctx, "ranking write failed",
			logger.Int("event_id", store.EventID()),
			logger.Error(err))
		return
	}

	metrics.RecordRankWrites(string(t.region), inserts, rebinds)
	t.log.Info(ctx, "rankings stored",
		logger.Int("event_id", store.EventID()),
		logger.Int("inserts", inserts),
		logger.Int("rebinds", rebinds),
		logger.Duration("cost", time.Since(start)))
}
