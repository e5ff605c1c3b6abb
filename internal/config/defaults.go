package config

// Default returns the repository default configuration. Paths are expanded
// later by normalize so tests can override them before Load completes.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: "~/.local/share/poppo/state",
			LogDir:   "~/.local/share/poppo/logs",
		},
		Locks: Locks{
			TimeoutMS:         5000,
			PollIntervalMS:    100,
			StaleAfterMinutes: 10,
		},
		Tasks: Tasks{
			MaxAgeHours: 24,
		},
		Audit: Audit{
			Enabled:  true,
			Schedule: "@every 10m",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
