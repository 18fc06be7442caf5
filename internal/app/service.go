// Package service wires the region trackers to their shared components and
// supervises their lifecycle.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/taptrack/internal/adapters/gameapi"
	"github.com/okian/taptrack/internal/adapters/repository"
	"github.com/okian/taptrack/internal/domain/dedupe"
	"github.com/okian/taptrack/internal/domain/masterdata"
	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/internal/domain/selector"
	"github.com/okian/taptrack/internal/tracker"
	"github.com/okian/taptrack/pkg/logger"
)

// Service owns one tracker goroutine per configured region plus the
// components they share: the master data view, the HTTP client, the store
// registry, and the dedup cache.
type Service struct {
	mu sync.Mutex

	// Configuration
	regions         []model.Region
	urls            map[model.Region]string
	token           string
	masterDataRoot  string
	dbRoot          string
	grace           time.Duration
	normalInterval  time.Duration
	highResInterval time.Duration
	highResRanks    map[model.Region][]tracker.RankRange
	highResUIDs     map[model.Region][]string

	// Shared components
	view   *masterdata.View
	client *gameapi.Client
	stores *repository.Registry
	cache  *dedupe.Cache

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with default intervals. Regions, URLs, and the
// data roots come from options.
func New(opts ...Option) *Service {
	s := &Service{
		urls:           make(map[model.Region]string),
		grace:          time.Hour,
		normalInterval: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the shared components and launches one tracker per region.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if len(s.regions) == 0 {
		return fmt.Errorf("no regions configured")
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.view = masterdata.NewView(s.masterDataRoot)
	s.client = gameapi.NewClient(s.urls, s.token)
	s.stores = repository.NewRegistry(s.dbRoot)
	s.cache = dedupe.New()
	sel := selector.New(s.view, selector.WithGrace(s.grace))
	parser := gameapi.NewParser(s.view)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	for _, region := range s.regions {
		opts := []tracker.Option{
			tracker.WithNormalInterval(s.normalInterval),
		}
		if f := s.highResFilter(region); f != nil {
			opts = append(opts, tracker.WithHighRes(s.highResInterval, f))
		}
		tr := tracker.New(region, sel, s.client, parser, s.stores, s.cache, opts...)

		s.wg.Add(1)
		go func(region model.Region) {
			defer s.wg.Done()
			tr.Run(runCtx)
			s.logger.Info(runCtx, "region tracker stopped", logger.String("region", string(region)))
		}(region)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "tracker service started",
		logger.Int("regions", len(s.regions)),
		logger.Duration("normal_interval", s.normalInterval))
	return nil
}

// Stop cancels the tracker loops, waits for them, and releases shared
// resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.cancel()
	s.wg.Wait()

	for _, region := range s.regions {
		if err := s.stores.CloseAll(region); err != nil {
			s.logger.Warn(context.Background(), "closing stores on shutdown failed",
				logger.String("region", string(region)),
				logger.Error(err))
		}
	}
	s.client.Close()

	s.started = false
	s.logger.Info(context.Background(), "tracker service stopped")
}

// highResFilter builds the dense-cadence filter for a region, or nil when
// the region has no dense cadence configured.
func (s *Service) highResFilter(region model.Region) *tracker.HighResFilter {
	if s.highResInterval <= 0 {
		return nil
	}
	ranges := s.highResRanks[region]
	uids := s.highResUIDs[region]
	if len(ranges) == 0 && len(uids) == 0 {
		return nil
	}
	return tracker.NewHighResFilter(ranges, uids)
}

// GetStats returns service statistics for the ops endpoint.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	regions := make([]string, len(s.regions))
	for i, r := range s.regions {
		regions[i] = string(r)
	}

	stats := map[string]interface{}{
		"started":         s.started,
		"regions":         regions,
		"normal_interval": s.normalInterval.String(),
	}
	if s.started {
		stats["uptime"] = time.Since(s.startedAt).String()
		stats["open_stores"] = s.stores.OpenCount()
		stats["dedupe_entries"] = s.cache.Size()
	}
	return stats
}
