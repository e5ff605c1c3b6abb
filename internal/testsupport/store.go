package testsupport

import (
	"testing"

	"poppo/internal/config"
	"poppo/internal/logging"
	"poppo/internal/state"
)

// MustOpenStore opens a state.Store for tests.
func MustOpenStore(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	store, err := state.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	return store
}
