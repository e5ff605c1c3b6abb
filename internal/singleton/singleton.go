package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"poppo/internal/atomicfile"
	"poppo/internal/lockfile"
	"poppo/internal/logging"
)

// DefaultLockName is the singleton lock file name inside the state directory.
const DefaultLockName = "poppod.lock"

// Info is the recorded identity of the lock holder.
type Info struct {
	PID       int    `json:"pid"`
	StartTime string `json:"startTime"`
	Hostname  string `json:"hostname"`
}

// Lock is the whole-process mutual exclusion for the daemon.
type Lock struct {
	path   string
	guard  *flock.Flock
	logger *slog.Logger
	held   bool
}

// New constructs a Lock over the given lock file path.
func New(path string, logger *slog.Logger) *Lock {
	return &Lock{
		path:   path,
		guard:  flock.New(path + ".flock"),
		logger: logging.NewComponentLogger(logger, "singleton"),
	}
}

// Path returns the singleton lock file path.
func (l *Lock) Path() string { return l.path }

// Acquire claims the singleton. It returns false when another live process
// owns the lock; a lock left behind by a dead process (or an unparsable
// body) is reclaimed in place. The inspection and the claim run under a
// flock guard so concurrent daemons serialize here.
func (l *Lock) Acquire() (bool, error) {
	if l.held {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	if err := l.guard.Lock(); err != nil {
		return false, fmt.Errorf("acquire singleton guard: %w", err)
	}
	defer func() {
		if err := l.guard.Unlock(); err != nil {
			l.logger.Warn("failed to release singleton guard", logging.Error(err))
		}
	}()

	holder, err := l.readHolder()
	if err != nil {
		return false, err
	}
	if holder != nil {
		if holder.PID != os.Getpid() && lockfile.ProcessAlive(holder.PID) {
			return false, nil
		}
		l.logger.Warn("reclaiming singleton lock from dead process",
			logging.Int(logging.FieldPID, holder.PID),
			logging.String("holder_started", holder.StartTime))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	info := Info{
		PID:       os.Getpid(),
		StartTime: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostname,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal singleton body: %w", err)
	}
	if err := atomicfile.WriteFile(l.path, append(data, '\n')); err != nil {
		return false, fmt.Errorf("write singleton lock: %w", err)
	}

	l.held = true
	l.logger.Info("singleton lock acquired",
		logging.Int(logging.FieldPID, info.PID),
		logging.String(logging.FieldPath, l.path))
	return true, nil
}

// Release deletes the lock file. Failures are logged, not escalated: the
// process is exiting regardless, and a leaked file is reclaimed by the next
// Acquire via the liveness probe.
func (l *Lock) Release() {
	if !l.held {
		return
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("failed to remove singleton lock",
			logging.String(logging.FieldPath, l.path),
			logging.Error(err))
		return
	}
	l.logger.Info("singleton lock released")
}

// Holder returns the recorded holder when a parsable lock file exists.
func (l *Lock) Holder() (*Info, error) {
	return l.readHolder()
}

// readHolder parses the existing lock body. A missing file or an unparsable
// body returns nil: both mean no live holder can be identified.
func (l *Lock) readHolder() (*Info, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read singleton lock: %w", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.PID <= 0 {
		l.logger.Warn("singleton lock body unparsable, treating as stale",
			logging.String(logging.FieldPath, l.path))
		return &Info{}, nil
	}
	return &info, nil
}
