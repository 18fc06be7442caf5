package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if TAPTRACK_CONFIG is set
//  3. env (prefix TAPTRACK_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("TAPTRACK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: TAPTRACK_LOG_LEVEL, TAPTRACK_DB_ROOT, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("TAPTRACK_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "taptrack_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces the startup contract: a misconfigured service must not
// come up at all.
func (c *Config) validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("%w: regions must not be empty", ErrInvalidConfig)
	}
	for _, region := range c.Regions {
		url, ok := c.RankingAPIURL[region]
		if !ok || url == "" {
			return fmt.Errorf("%w: missing ranking_api_url for region %q", ErrInvalidConfig, region)
		}
		if !strings.Contains(url, "{event_id}") {
			return fmt.Errorf("%w: ranking_api_url for region %q lacks {event_id}", ErrInvalidConfig, region)
		}
	}
	if c.RecordIntervalSeconds <= 0 {
		return fmt.Errorf("%w: record_interval_seconds must be positive", ErrInvalidConfig)
	}
	if c.RecordTimeAfterEventEndMinutes < 0 {
		return fmt.Errorf("%w: record_time_after_event_end_minutes must not be negative", ErrInvalidConfig)
	}
	if c.HighResRecord.IntervalSeconds < 0 {
		return fmt.Errorf("%w: high_res_record.interval_seconds must not be negative", ErrInvalidConfig)
	}
	for region, pairs := range c.HighResRecord.Ranks {
		for _, pair := range pairs {
			if len(pair) != 2 || pair[0] <= 0 || pair[1] < pair[0] {
				return fmt.Errorf("%w: malformed high_res_record.ranks pair for region %q", ErrInvalidConfig, region)
			}
		}
	}
	if c.MasterdataRoot == "" || c.DBRoot == "" {
		return fmt.Errorf("%w: masterdata_root and db_root must not be empty", ErrInvalidConfig)
	}
	if _, err := os.Stat(c.MasterdataRoot); err != nil {
		return fmt.Errorf("%w: masterdata_root %q: %v", ErrInvalidConfig, c.MasterdataRoot, err)
	}
	return nil
}
