package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"poppo/internal/atomicfile"
	"poppo/internal/config"
	"poppo/internal/lockfile"
	"poppo/internal/logging"
)

// LockDirName is the subdirectory of the state directory holding lock files.
const LockDirName = ".locks"

// Store reads and writes the shared state documents. Construct one per
// process component that needs it; all coordination happens through the
// filesystem, not through shared Store instances.
type Store struct {
	dir        string
	locks      *lockfile.Manager
	writer     *atomicfile.Writer
	logger     *slog.Logger
	timeout    time.Duration
	staleAfter time.Duration
}

// Open constructs a Store for the configured state directory and bootstraps
// it: the directory, the lock directory, and every document exist and parse
// after a successful Open.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("state store requires a config")
	}
	logger = logging.NewComponentLogger(logger, "state")
	s := &Store{
		dir:        cfg.Paths.StateDir,
		locks:      lockfile.NewManager(filepath.Join(cfg.Paths.StateDir, LockDirName), cfg.LockPollInterval(), logger),
		writer:     atomicfile.NewWriter(logger),
		logger:     logger,
		timeout:    cfg.LockTimeout(),
		staleAfter: cfg.LockStaleAfter(),
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

// LockDir returns the lock directory path.
func (s *Store) LockDir() string { return s.locks.Dir() }

// Init creates the state layout and repairs unreadable documents in place.
// It is idempotent and safe to call from every process at startup.
// Filesystem errors here are fatal: there is no degraded mode without a
// writable state directory.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.MkdirAll(s.locks.Dir(), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	for _, doc := range Documents {
		if err := s.ensureDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

// ensureDocument creates a missing document with its empty value and resets
// a document that no longer parses as its expected shape.
func (s *Store) ensureDocument(doc string) error {
	return s.withLock(doc, func() error {
		path := s.documentPath(doc)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return s.writeDocument(doc, emptyValue(doc))
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", doc, err)
		}
		if checkShape(doc, data) == nil {
			return nil
		}
		s.logger.Warn("resetting corrupt document",
			logging.String(logging.FieldDocument, doc),
			logging.String(logging.FieldEventType, "document_reset"))
		return s.writeDocument(doc, emptyValue(doc))
	})
}

// Reset rewrites every document with its empty value. Used by tests and the
// CLI; normal operation only grows the store.
func (s *Store) Reset() error {
	for _, doc := range Documents {
		doc := doc
		err := s.withLock(doc, func() error {
			return s.writeDocument(doc, emptyValue(doc))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) documentPath(doc string) string {
	return filepath.Join(s.dir, doc)
}

// withLock runs fn while holding the document's lock. Lock acquisition
// failures (timeouts included) propagate to the caller.
func (s *Store) withLock(doc string, fn func() error) error {
	handle, err := s.locks.Acquire(resourceKey(doc), s.timeout)
	if err != nil {
		return err
	}
	defer s.locks.Release(handle)
	return fn()
}

// readDocument loads and parses a document without taking its lock. It
// reports false when the document is missing, unreadable, or corrupt; the
// caller proceeds with the type's empty value in that case.
func (s *Store) readDocument(doc string, v any) bool {
	data, err := os.ReadFile(s.documentPath(doc))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read document",
				logging.String(logging.FieldDocument, doc),
				logging.Error(err))
		}
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("corrupt document, using empty value",
			logging.String(logging.FieldDocument, doc),
			logging.String(logging.FieldEventType, "document_corrupt"),
			logging.Error(err))
		return false
	}
	return true
}

// writeDocument serializes v and atomically replaces the document. The
// caller must hold the document's lock.
func (s *Store) writeDocument(doc string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", doc, err)
	}
	data = append(data, '\n')
	if err := s.writer.WriteFile(s.documentPath(doc), data); err != nil {
		return fmt.Errorf("write %s: %w", doc, err)
	}
	return nil
}

// emptyValue returns the type-appropriate empty content for a document.
func emptyValue(doc string) any {
	switch doc {
	case DocProcessedIssues, DocPendingTasks:
		return []any{}
	default:
		return map[string]any{}
	}
}

// checkShape verifies that raw bytes decode as the document's expected
// container type.
func checkShape(doc string, data []byte) error {
	var err error
	switch doc {
	case DocProcessedIssues:
		// Element validation is lenient by design (non-numeric entries are
		// dropped on load); shape only requires an array.
		var v []json.RawMessage
		err = json.Unmarshal(data, &v)
	case DocProcessedComments:
		var v map[string][]string
		err = json.Unmarshal(data, &v)
	case DocRunningTasks:
		var v map[string]TaskInfo
		err = json.Unmarshal(data, &v)
	case DocPendingTasks:
		var v []map[string]any
		err = json.Unmarshal(data, &v)
	case DocLastRun:
		var v map[string]any
		err = json.Unmarshal(data, &v)
	default:
		return fmt.Errorf("unknown document %q", doc)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", doc, err)
	}
	return nil
}
