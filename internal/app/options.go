package service

import (
	"time"

	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/internal/tracker"
	"github.com/okian/taptrack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRegions sets the regions to track.
func WithRegions(regions []model.Region) Option {
	return func(s *Service) {
		s.regions = regions
	}
}

// WithAPIURLs sets the per-region leaderboard URL templates.
func WithAPIURLs(urls map[model.Region]string) Option {
	return func(s *Service) {
		if urls != nil {
			s.urls = urls
		}
	}
}

// WithToken sets the game API bearer token.
func WithToken(token string) Option {
	return func(s *Service) {
		s.token = token
	}
}

// WithMasterDataRoot sets the directory holding per-region master data.
func WithMasterDataRoot(root string) Option {
	return func(s *Service) {
		s.masterDataRoot = root
	}
}

// WithDBRoot sets the directory holding per-event databases.
func WithDBRoot(root string) Option {
	return func(s *Service) {
		s.dbRoot = root
	}
}

// WithGrace sets how long an ended event keeps being polled.
func WithGrace(grace time.Duration) Option {
	return func(s *Service) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

// WithNormalInterval sets the base polling cadence.
func WithNormalInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.normalInterval = d
		}
	}
}

// WithHighResInterval sets the dense polling cadence. Regions only use it
// when they also have ranks or uids configured.
func WithHighResInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.highResInterval = d
		}
	}
}

// WithHighResRanks sets the per-region rank ranges for the dense cadence.
func WithHighResRanks(ranks map[model.Region][]tracker.RankRange) Option {
	return func(s *Service) {
		s.highResRanks = ranks
	}
}

// WithHighResUIDs sets the per-region watched uids for the dense cadence.
func WithHighResUIDs(uids map[model.Region][]string) Option {
	return func(s *Service) {
		s.highResUIDs = uids
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}
