// Package dedupe tracks the last observed ranking per (region, event, rank)
// to suppress redundant store writes between polling ticks.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/taptrack/internal/domain/model"
)

// observation is the compact "last observed" state for one rank.
type observation struct {
	uid   string
	score int64
}

// Cache is the per-region, per-event, per-rank last-observed map. Within one
// region the tracker loop is the only writer; the lock covers the parallel
// per-target store writes inside a single tick and cross-region sharing.
type Cache struct {
	mu      sync.RWMutex
	entries map[model.Region]map[int]map[int]observation
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[model.Region]map[int]map[int]observation),
	}
}

// FilterAndUpdate returns the subset of rankings that changed since the last
// observation: entries whose rank was not cached, or whose uid or score
// differs from the cached value. The cache is updated to every incoming
// ranking regardless of whether it is returned, so a later rebind compares
// against what the database head now holds.
func (c *Cache) FilterAndUpdate(ctx context.Context, region model.Region, eventID int, rankings []model.Ranking) []model.Ranking {
	if err := ctx.Err(); err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byEvent, ok := c.entries[region]
	if !ok {
		byEvent = make(map[int]map[int]observation)
		c.entries[region] = byEvent
	}
	byRank, ok := byEvent[eventID]
	if !ok {
		byRank = make(map[int]observation)
		byEvent[eventID] = byRank
	}

	var changed []model.Ranking
	for _, r := range rankings {
		prev, seen := byRank[r.Rank]
		if !seen || prev.uid != r.UID || prev.score != r.Score {
			changed = append(changed, r)
		}
		byRank[r.Rank] = observation{uid: r.UID, score: r.Score}
	}
	return changed
}

// EvictNonCurrent drops every cached event whose primary event id differs
// from the current one. Chapter-expanded ids compare modulo 1000, so chapter
// siblings of the active event survive the sweep.
func (c *Cache) EvictNonCurrent(ctx context.Context, region model.Region, currentEventID int) {
	if err := ctx.Err(); err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byEvent, ok := c.entries[region]
	if !ok {
		return
	}
	current := model.PrimaryEventID(currentEventID)
	for eventID := range byEvent {
		if model.PrimaryEventID(eventID) != current {
			delete(byEvent, eventID)
		}
	}
}

// Size returns the total number of cached rank entries across all regions.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, byEvent := range c.entries {
		for _, byRank := range byEvent {
			total += len(byRank)
		}
	}
	return total
}
