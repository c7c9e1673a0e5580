package scheduler

import (
	"time"

	appconfig "github.com/smallbiznis/punchcard/internal/config"
)

// Config controls the moderation reminder loop.
type Config struct {
	RunInterval   time.Duration
	ReminderAfter time.Duration
	BatchSize     int
}

func DefaultConfig() Config {
	return Config{
		RunInterval:   time.Minute,
		ReminderAfter: 24 * time.Hour,
		BatchSize:     50,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.ReminderAfter <= 0 {
		c.ReminderAfter = defaults.ReminderAfter
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval:   cfg.Scheduler.RunInterval,
		ReminderAfter: cfg.Scheduler.ReminderAfter,
		BatchSize:     cfg.Scheduler.BatchSize,
	}
}
