package testsupport

import (
	"path/filepath"
	"testing"

	"poppo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and lock timings short enough for contention tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Locks.TimeoutMS = 2000
	cfg.Locks.PollIntervalMS = 10

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLockTimeoutMS overrides the lock acquisition timeout.
func WithLockTimeoutMS(ms int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Locks.TimeoutMS = ms
	}
}

// WithTaskMaxAgeHours overrides the running-task retention window.
func WithTaskMaxAgeHours(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tasks.MaxAgeHours = hours
	}
}
