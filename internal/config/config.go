// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// HighResRecord configures the high-resolution recording cadence. Ranks and
// UIDs are keyed by region; a region with neither entry never runs the
// high-resolution cadence.
type HighResRecord struct {
	// IntervalSeconds is the high-resolution cadence. Zero disables it.
	IntervalSeconds int `koanf:"interval_seconds"`

	// Ranks maps region -> list of inclusive [min, max] rank pairs.
	Ranks map[string][][]int `koanf:"ranks"`

	// UIDs maps region -> list of always-recorded player ids.
	UIDs map[string][]string `koanf:"uids"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the ops HTTP listen address, e.g. ":9090".
	// Empty disables the ops surface entirely.
	MetricsAddr string `koanf:"metrics_addr"`

	// Regions lists the regional shards to track.
	Regions []string `koanf:"regions"`

	// RankingAPIURL maps region -> URL template containing {event_id}.
	RankingAPIURL map[string]string `koanf:"ranking_api_url"`

	// GameAPIToken is the bearer token sent with every fetch.
	GameAPIToken string `koanf:"gameapi_token"`

	// MasterdataRoot is the directory holding per-region master data snapshots.
	MasterdataRoot string `koanf:"masterdata_root"`

	// DBRoot is the directory holding per-event databases.
	DBRoot string `koanf:"db_root"`

	// RecordIntervalSeconds is the normal polling cadence.
	RecordIntervalSeconds int `koanf:"record_interval_seconds"`

	// RecordTimeAfterEventEndMinutes is the post-end grace window during which
	// an ended event keeps being polled and recorded.
	RecordTimeAfterEventEndMinutes int `koanf:"record_time_after_event_end_minutes"`

	// HighResRecord configures the high-resolution cadence.
	HighResRecord HighResRecord `koanf:"high_res_record"`
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                       "info",
		MetricsAddr:                    "",
		Regions:                        []string{"jp"},
		RankingAPIURL:                  map[string]string{},
		MasterdataRoot:                 "data/masterdata",
		DBRoot:                         "data/event_tracker/db",
		RecordIntervalSeconds:          120,
		RecordTimeAfterEventEndMinutes: 60,
		HighResRecord: HighResRecord{
			IntervalSeconds: 0,
			Ranks:           map[string][][]int{},
			UIDs:            map[string][]string{},
		},
	}
}
