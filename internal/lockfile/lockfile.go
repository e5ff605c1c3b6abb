package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"poppo/internal/logging"
)

// ErrTimeout is returned when a lock cannot be acquired within its timeout.
// Callers should treat it as "busy, try again".
var ErrTimeout = errors.New("lock acquisition timed out")

// Suffix is the file extension for resource lock files.
const Suffix = ".lock"

// Manager creates and releases lock files under a single lock directory.
type Manager struct {
	dir          string
	pollInterval time.Duration
	logger       *slog.Logger
}

// Handle represents a held lock. It must be released exactly once; a second
// release is a logged no-op.
type Handle struct {
	resource string
	path     string
	released bool
}

// Resource returns the logical name the lock protects.
func (h *Handle) Resource() string { return h.resource }

// Path returns the lock file path.
func (h *Handle) Path() string { return h.path }

// NewManager constructs a Manager rooted at dir. The directory is created by
// Acquire on demand; pollInterval bounds how often waiters retry.
func NewManager(dir string, pollInterval time.Duration, logger *slog.Logger) *Manager {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Manager{
		dir:          dir,
		pollInterval: pollInterval,
		logger:       logging.NewComponentLogger(logger, "lockfile"),
	}
}

// Dir returns the lock directory path.
func (m *Manager) Dir() string { return m.dir }

// LockPath returns the lock file path for a resource key.
func (m *Manager) LockPath(resource string) string {
	return filepath.Join(m.dir, resource+Suffix)
}

// Acquire obtains the lock for resource, waiting up to timeout. The lock file
// records the caller's PID. On timeout the recorded holder is probed: a lock
// held by a dead process is removed so the next attempt succeeds, and the
// returned error wraps ErrTimeout either way.
func (m *Manager) Acquire(resource string, timeout time.Duration) (*Handle, error) {
	if strings.TrimSpace(resource) == "" {
		return nil, errors.New("resource key cannot be empty")
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := m.LockPath(resource)
	deadline := time.Now().Add(timeout)

	for {
		err := m.tryCreate(path)
		if err == nil {
			return &Handle{resource: resource, path: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lock %s: %w", path, err)
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(m.pollInterval)
	}

	return nil, m.timeoutError(resource, path, timeout)
}

// tryCreate attempts the exclusive create that constitutes lock acquisition.
func (m *Manager) tryCreate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write lock body: %w", err)
	}
	return f.Close()
}

// timeoutError inspects the blocking lock and reclaims it when its holder is
// gone, so the caller's retry can succeed.
func (m *Manager) timeoutError(resource, path string, timeout time.Duration) error {
	pid, err := m.HolderPID(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Holder released between our last attempt and now.
		return fmt.Errorf("%w: resource %q after %s", ErrTimeout, resource, timeout)
	case err != nil:
		// Unreadable body: nobody can own up to this lock, treat as abandoned.
		m.remove(path, 0, "unreadable lock body")
		return fmt.Errorf("%w: resource %q after %s (abandoned lock removed)", ErrTimeout, resource, timeout)
	case !ProcessAlive(pid):
		m.remove(path, pid, "holder no longer alive")
		return fmt.Errorf("%w: resource %q after %s (stale lock of dead pid %d removed)", ErrTimeout, resource, timeout, pid)
	default:
		return fmt.Errorf("%w: resource %q after %s (held by pid %d)", ErrTimeout, resource, timeout, pid)
	}
}

func (m *Manager) remove(path string, pid int, reason string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("failed to remove stale lock",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		return
	}
	m.logger.Warn("removed stale lock",
		logging.String(logging.FieldPath, path),
		logging.Int(logging.FieldPID, pid),
		logging.String("reason", reason))
}

// Release deletes the lock file. Failures are logged rather than returned:
// by the time a caller releases, the critical section is already over and
// the stale-lock reclamation paths cover a leaked file.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	if h.released {
		m.logger.Warn("lock released twice",
			logging.String(logging.FieldResource, h.resource))
		return
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("failed to release lock",
			logging.String(logging.FieldResource, h.resource),
			logging.Error(err))
	}
}

// HolderPID reads the PID recorded in a lock file.
func (m *Manager) HolderPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("parse lock body %q: invalid pid", strings.TrimSpace(string(data)))
	}
	return pid, nil
}
