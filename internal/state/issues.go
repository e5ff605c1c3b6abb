package state

import (
	"fmt"
	"math"

	"poppo/internal/logging"
)

// LoadProcessedIssues returns the set of issue numbers already handled.
// A missing or corrupt document yields an empty set, never an error; only
// lock acquisition failures propagate.
func (s *Store) LoadProcessedIssues() (IssueSet, error) {
	var set IssueSet
	err := s.withLock(DocProcessedIssues, func() error {
		set = s.loadIssuesFree()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// SaveProcessedIssues persists the set, serialized as a sorted array.
func (s *Store) SaveProcessedIssues(set IssueSet) error {
	return s.withLock(DocProcessedIssues, func() error {
		return s.saveIssuesFree(set)
	})
}

// AddProcessedIssue records an issue as processed. Load, mutate, and write
// happen in one critical section so concurrent adders cannot lose updates.
// Adding an already-present issue is a no-op that skips the write.
func (s *Store) AddProcessedIssue(issue int) error {
	if issue <= 0 {
		return fmt.Errorf("issue number must be positive, got %d", issue)
	}
	return s.withLock(DocProcessedIssues, func() error {
		set := s.loadIssuesFree()
		if set.Contains(issue) {
			return nil
		}
		set.Add(issue)
		return s.saveIssuesFree(set)
	})
}

// IsIssueProcessed reports whether the issue has been recorded.
func (s *Store) IsIssueProcessed(issue int) (bool, error) {
	set, err := s.LoadProcessedIssues()
	if err != nil {
		return false, err
	}
	return set.Contains(issue), nil
}

// loadIssuesFree reads the issue document without locking. Non-numeric and
// non-positive entries are dropped rather than treated as corruption; the
// dropped count is logged so silent decay stays visible to operators.
func (s *Store) loadIssuesFree() IssueSet {
	set := make(IssueSet)
	var raw []any
	if !s.readDocument(DocProcessedIssues, &raw) {
		return set
	}
	dropped := 0
	for _, entry := range raw {
		n, ok := entry.(float64)
		if !ok || n != math.Trunc(n) || n <= 0 {
			dropped++
			continue
		}
		set.Add(int(n))
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid processed-issue entries",
			logging.String(logging.FieldDocument, DocProcessedIssues),
			logging.Int("dropped", dropped))
	}
	return set
}

func (s *Store) saveIssuesFree(set IssueSet) error {
	return s.writeDocument(DocProcessedIssues, set.Sorted())
}
