package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"poppo/internal/lockfile"
	"poppo/internal/logging"
)

// Report aggregates the outcome of an integrity audit.
type Report struct {
	Valid             bool      `json:"valid"`
	Problems          []string  `json:"problems"`
	DocumentsChecked  int       `json:"documents_checked"`
	StaleLocksRemoved int       `json:"stale_locks_removed"`
	CheckedAt         time.Time `json:"checked_at"`
}

// CheckIntegrity validates every document's shape and sweeps the lock
// directory for abandoned locks. It never fails: every problem becomes an
// entry in the report.
func (s *Store) CheckIntegrity() Report {
	report := Report{CheckedAt: time.Now().UTC()}

	for _, doc := range Documents {
		report.DocumentsChecked++
		data, err := os.ReadFile(s.documentPath(doc))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: missing (run init or repair)", doc))
			} else {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: unreadable: %v", doc, err))
			}
			continue
		}
		if err := checkShape(doc, data); err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: malformed: %v", doc, err))
		}
	}

	removed, problems := s.sweepLocks()
	report.StaleLocksRemoved = removed
	report.Problems = append(report.Problems, problems...)

	report.Valid = len(report.Problems) == 0
	return report
}

// sweepLocks removes lock files past the staleness threshold whose holders
// are gone. A live holder past the threshold is reported, not removed;
// forced removal is reserved for processes that no longer exist.
func (s *Store) sweepLocks() (int, []string) {
	entries, err := os.ReadDir(s.locks.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, []string{fmt.Sprintf("lock directory: unreadable: %v", err)}
	}

	removed := 0
	var problems []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), lockfile.Suffix) {
			continue
		}
		path := filepath.Join(s.locks.Dir(), entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := time.Since(info.ModTime())
		if age <= s.staleAfter {
			continue
		}

		pid, err := s.locks.HolderPID(path)
		if err == nil && lockfile.ProcessAlive(pid) {
			problems = append(problems, fmt.Sprintf("%s: held past staleness threshold (%s) by live pid %d", entry.Name(), age.Round(time.Second), pid))
			continue
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			problems = append(problems, fmt.Sprintf("%s: stale but could not remove: %v", entry.Name(), rmErr))
			continue
		}
		s.logger.Warn("removed orphaned lock",
			logging.String(logging.FieldPath, path),
			logging.Int(logging.FieldPID, pid),
			logging.Duration("age", age))
		removed++
	}
	return removed, problems
}

// Repair rewrites every missing or misshapen document with its empty value.
// It is the fix-it companion to CheckIntegrity, equivalent to re-running
// Init on a damaged directory.
func (s *Store) Repair() error {
	return s.Init()
}

// Stats summarizes the store's contents for status displays.
type Stats struct {
	ProcessedIssues   int       `json:"processed_issues"`
	IssuesWithComment int       `json:"issues_with_comments"`
	ProcessedComments int       `json:"processed_comments"`
	RunningTasks      int       `json:"running_tasks"`
	PendingTasks      int       `json:"pending_tasks"`
	LastRunAt         time.Time `json:"last_run_at,omitzero"`
}

// Stats loads every document and returns aggregate counts.
func (s *Store) Stats() (Stats, error) {
	var stats Stats

	issues, err := s.LoadProcessedIssues()
	if err != nil {
		return stats, err
	}
	stats.ProcessedIssues = len(issues)

	comments, err := s.LoadProcessedComments()
	if err != nil {
		return stats, err
	}
	stats.IssuesWithComment = len(comments)
	for _, ids := range comments {
		stats.ProcessedComments += len(ids)
	}

	tasks, err := s.LoadRunningTasks()
	if err != nil {
		return stats, err
	}
	stats.RunningTasks = len(tasks)

	pending, err := s.LoadPendingTasks()
	if err != nil {
		return stats, err
	}
	stats.PendingTasks = len(pending)

	lastRun, err := s.LoadLastRun()
	if err != nil {
		return stats, err
	}
	if ts, ok := lastRun.Timestamp(); ok {
		stats.LastRunAt = ts
	}
	return stats, nil
}
