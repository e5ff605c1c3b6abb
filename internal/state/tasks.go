package state

import (
	"fmt"
	"strings"
	"time"

	"poppo/internal/logging"
)

// LoadRunningTasks returns the running-task map. Missing or corrupt data
// yields an empty map.
func (s *Store) LoadRunningTasks() (TaskMap, error) {
	var tasks TaskMap
	err := s.withLock(DocRunningTasks, func() error {
		tasks = s.loadTasksFree()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveRunningTasks persists the running-task map wholesale.
func (s *Store) SaveRunningTasks(tasks TaskMap) error {
	return s.withLock(DocRunningTasks, func() error {
		return s.writeDocument(DocRunningTasks, tasks)
	})
}

// AddRunningTask registers a task descriptor under the given id in one
// critical section. A missing startTime field is stamped with the current
// time so the entry is eligible for age-based cleanup.
func (s *Store) AddRunningTask(taskID string, info TaskInfo) error {
	if strings.TrimSpace(taskID) == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	return s.withLock(DocRunningTasks, func() error {
		tasks := s.loadTasksFree()
		entry := make(TaskInfo, len(info)+1)
		for k, v := range info {
			entry[k] = v
		}
		if _, ok := entry[StartTimeField].(string); !ok {
			entry[StartTimeField] = time.Now().UTC().Format(time.RFC3339)
		}
		tasks[taskID] = entry
		return s.writeDocument(DocRunningTasks, tasks)
	})
}

// RemoveRunningTask deletes a task entry. Removing an unknown id is a no-op
// that skips the write.
func (s *Store) RemoveRunningTask(taskID string) error {
	return s.withLock(DocRunningTasks, func() error {
		tasks := s.loadTasksFree()
		if _, ok := tasks[taskID]; !ok {
			return nil
		}
		delete(tasks, taskID)
		return s.writeDocument(DocRunningTasks, tasks)
	})
}

// CleanupStaleRunningTasks purges entries older than maxAge and entries
// whose startTime is missing or unparsable, returning the number removed.
// The whole pass runs in one critical section and writes back only when
// something changed.
func (s *Store) CleanupStaleRunningTasks(maxAge time.Duration) (int, error) {
	removed := 0
	err := s.withLock(DocRunningTasks, func() error {
		tasks := s.loadTasksFree()
		cutoff := time.Now().Add(-maxAge)
		for taskID, info := range tasks {
			started, ok := info.StartTime()
			if ok && !started.Before(cutoff) {
				continue
			}
			reason := "older than max age"
			if !ok {
				reason = "missing or unparsable startTime"
			}
			s.logger.Warn("purging stale running task",
				logging.String(logging.FieldTaskID, taskID),
				logging.String("reason", reason))
			delete(tasks, taskID)
			removed++
		}
		if removed == 0 {
			return nil
		}
		return s.writeDocument(DocRunningTasks, tasks)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) loadTasksFree() TaskMap {
	tasks := make(TaskMap)
	var raw map[string]TaskInfo
	if !s.readDocument(DocRunningTasks, &raw) {
		return tasks
	}
	for taskID, info := range raw {
		tasks[taskID] = info
	}
	return tasks
}
