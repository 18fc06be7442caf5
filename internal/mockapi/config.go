package mockapi

import "time"

// Config holds configuration for the mock game API.
type Config struct {
	Addr         string        // Listen address
	EventID      int           // Event served by the API
	Chapters     int           // Chapter count; 0 means a normal event
	Players      int           // Simulated player pool size
	TopSize      int           // Rows in the top section
	BorderRanks  []int         // Ranks exposed in the border section
	Seed         int64         // Seed for the deterministic simulation
	StepInterval time.Duration // How often scores advance
}

// Defaults for the simulation.
const (
	DefaultPlayers      = 300
	DefaultTopSize      = 100
	DefaultStepInterval = 30 * time.Second
)

// DefaultBorderRanks mirrors the border cutoffs the real API exposes.
var DefaultBorderRanks = []int{100, 200, 300, 500, 1000, 2000, 3000, 5000, 10000}

func (c *Config) normalize() {
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.TopSize <= 0 {
		c.TopSize = DefaultTopSize
	}
	if len(c.BorderRanks) == 0 {
		c.BorderRanks = DefaultBorderRanks
	}
	if c.StepInterval <= 0 {
		c.StepInterval = DefaultStepInterval
	}
}
