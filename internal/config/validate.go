package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Audit.Schedule = strings.TrimSpace(c.Audit.Schedule)
	return nil
}

// Validate checks configuration invariants shared by the daemon and CLI.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return fmt.Errorf("paths.state_dir is required")
	}
	if c.Locks.TimeoutMS <= 0 {
		return fmt.Errorf("locks.timeout_ms must be positive, got %d", c.Locks.TimeoutMS)
	}
	if c.Locks.PollIntervalMS <= 0 {
		return fmt.Errorf("locks.poll_interval_ms must be positive, got %d", c.Locks.PollIntervalMS)
	}
	if c.Locks.PollIntervalMS > c.Locks.TimeoutMS {
		return fmt.Errorf("locks.poll_interval_ms (%d) exceeds locks.timeout_ms (%d)", c.Locks.PollIntervalMS, c.Locks.TimeoutMS)
	}
	if c.Locks.StaleAfterMinutes <= 0 {
		return fmt.Errorf("locks.stale_after_minutes must be positive, got %d", c.Locks.StaleAfterMinutes)
	}
	if c.Tasks.MaxAgeHours <= 0 {
		return fmt.Errorf("tasks.max_age_hours must be positive, got %d", c.Tasks.MaxAgeHours)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Audit.Enabled {
		if c.Audit.Schedule == "" {
			return fmt.Errorf("audit.schedule is required when audit is enabled")
		}
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Audit.Schedule); err != nil {
			return fmt.Errorf("audit.schedule: %w", err)
		}
	}
	return nil
}
