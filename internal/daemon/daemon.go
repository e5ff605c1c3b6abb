// Package daemon coordinates the background maintenance loop and enforces
// single-instance execution of poppod.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"poppo/internal/config"
	"poppo/internal/logging"
	"poppo/internal/singleton"
	"poppo/internal/state"
)

// Daemon owns the process singleton and the scheduled integrity audit.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *state.Store
	single *singleton.Lock
	cron   *cron.Cron

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *state.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := filepath.Join(cfg.Paths.StateDir, singleton.DefaultLockName)
	return &Daemon{
		cfg:    cfg,
		logger: logger,
		store:  store,
		single: singleton.New(lockPath, logger),
		cron:   cron.New(),
	}, nil
}

// Start claims the process singleton and begins the audit schedule. It runs
// one audit pass immediately so a freshly started daemon repairs leftovers
// from a crash without waiting for the first tick.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.single.Acquire()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("another poppod instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.cfg.Audit.Enabled {
		if _, err := d.cron.AddFunc(d.cfg.Audit.Schedule, d.runAudit); err != nil {
			d.single.Release()
			d.cancel()
			return err
		}
		d.cron.Start()
	}

	d.running.Store(true)
	d.logger.Info("poppod started",
		logging.String(logging.FieldPath, d.single.Path()),
		logging.Bool("audit_enabled", d.cfg.Audit.Enabled),
		logging.String("audit_schedule", d.cfg.Audit.Schedule))

	d.runAudit()
	return nil
}

// Stop halts the schedule and releases the singleton.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	<-d.cron.Stop().Done()
	d.single.Release()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("poppod stopped")
}

// Running reports whether the daemon holds the singleton and is scheduled.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// runAudit performs one maintenance pass: integrity check, stale-task
// cleanup, and a last-run record for status displays.
func (d *Daemon) runAudit() {
	if d.ctx != nil && d.ctx.Err() != nil {
		return
	}

	runID := uuid.NewString()
	logger := d.logger.With(logging.String(logging.FieldRunID, runID))

	report := d.store.CheckIntegrity()
	if !report.Valid {
		for _, problem := range report.Problems {
			logger.Warn("integrity problem", logging.String("problem", problem))
		}
	}

	purged, err := d.store.CleanupStaleRunningTasks(d.cfg.TaskMaxAge())
	if err != nil {
		logger.Error("stale task cleanup failed", logging.Error(err))
	}

	err = d.store.SaveLastRun(state.LastRun{
		"runId":             runID,
		"valid":             report.Valid,
		"problems":          report.Problems,
		"staleLocksRemoved": report.StaleLocksRemoved,
		"tasksPurged":       purged,
	})
	if err != nil {
		logger.Error("failed to record audit run", logging.Error(err))
	}

	logger.Info("audit pass complete",
		logging.Bool("valid", report.Valid),
		logging.Int("problems", len(report.Problems)),
		logging.Int("stale_locks_removed", report.StaleLocksRemoved),
		logging.Int("tasks_purged", purged))
}
