package scheduler

import (
	"time"
)

// Config controls when the daily trial check fires.
type Config struct {
	// RunAtHourUTC is the UTC hour of the daily run.
	RunAtHourUTC int
	// PollInterval is how often the loop consults the clock.
	PollInterval time.Duration
	// RunTimeout bounds a single run.
	RunTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunAtHourUTC: 6,
		PollInterval: 30 * time.Second,
		RunTimeout:   15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunAtHourUTC < 0 || c.RunAtHourUTC > 23 {
		c.RunAtHourUTC = defaults.RunAtHourUTC
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
