package state

import "time"

// LoadLastRun returns the last-run record. Missing or corrupt data yields an
// empty record.
func (s *Store) LoadLastRun() (LastRun, error) {
	var record LastRun
	err := s.withLock(DocLastRun, func() error {
		record = make(LastRun)
		s.readDocument(DocLastRun, &record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SaveLastRun overwrites the last-run record with info, stamping the save
// time. No history is retained.
func (s *Store) SaveLastRun(info LastRun) error {
	record := make(LastRun, len(info)+1)
	for k, v := range info {
		record[k] = v
	}
	record[TimestampField] = time.Now().UTC().Format(time.RFC3339)
	return s.withLock(DocLastRun, func() error {
		return s.writeDocument(DocLastRun, record)
	})
}

// LoadPendingTasks returns the pending-task list. Missing or corrupt data
// yields an empty list.
func (s *Store) LoadPendingTasks() (TaskList, error) {
	var list TaskList
	err := s.withLock(DocPendingTasks, func() error {
		list = make(TaskList, 0)
		s.readDocument(DocPendingTasks, &list)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// SavePendingTasks overwrites the pending-task list. The store treats the
// descriptors as opaque; ordering is preserved as given.
func (s *Store) SavePendingTasks(list TaskList) error {
	if list == nil {
		list = make(TaskList, 0)
	}
	return s.withLock(DocPendingTasks, func() error {
		return s.writeDocument(DocPendingTasks, list)
	})
}
