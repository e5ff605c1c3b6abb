package state

import (
	"fmt"
	"strconv"
	"strings"

	"poppo/internal/logging"
)

// LoadProcessedComments returns the comment index. Missing or corrupt data
// yields an empty index.
func (s *Store) LoadProcessedComments() (CommentIndex, error) {
	var index CommentIndex
	err := s.withLock(DocProcessedComments, func() error {
		index = s.loadCommentsFree()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// SaveProcessedComments persists the index, keyed by issue number as string.
func (s *Store) SaveProcessedComments(index CommentIndex) error {
	return s.withLock(DocProcessedComments, func() error {
		return s.saveCommentsFree(index)
	})
}

// AddProcessedComment records a comment id for an issue in one critical
// section. Recording a known comment is a no-op that skips the write.
func (s *Store) AddProcessedComment(issue int, commentID string) error {
	if issue <= 0 {
		return fmt.Errorf("issue number must be positive, got %d", issue)
	}
	if strings.TrimSpace(commentID) == "" {
		return fmt.Errorf("comment id cannot be empty")
	}
	return s.withLock(DocProcessedComments, func() error {
		index := s.loadCommentsFree()
		if index.Contains(issue, commentID) {
			return nil
		}
		index.Add(issue, commentID)
		return s.saveCommentsFree(index)
	})
}

// IsCommentProcessed reports whether the comment id is recorded for the issue.
func (s *Store) IsCommentProcessed(issue int, commentID string) (bool, error) {
	index, err := s.LoadProcessedComments()
	if err != nil {
		return false, err
	}
	return index.Contains(issue, commentID), nil
}

// ProcessedCommentsForIssue returns the comment ids recorded for one issue.
func (s *Store) ProcessedCommentsForIssue(issue int) ([]string, error) {
	index, err := s.LoadProcessedComments()
	if err != nil {
		return nil, err
	}
	return index[issue], nil
}

// loadCommentsFree reads the comment document without locking. Keys that do
// not parse as positive issue numbers are dropped, mirroring the lenient
// handling of the issue set.
func (s *Store) loadCommentsFree() CommentIndex {
	index := make(CommentIndex)
	var raw map[string][]string
	if !s.readDocument(DocProcessedComments, &raw) {
		return index
	}
	dropped := 0
	for key, ids := range raw {
		issue, err := strconv.Atoi(key)
		if err != nil || issue <= 0 {
			dropped++
			continue
		}
		index[issue] = ids
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid processed-comment keys",
			logging.String(logging.FieldDocument, DocProcessedComments),
			logging.Int("dropped", dropped))
	}
	return index
}

func (s *Store) saveCommentsFree(index CommentIndex) error {
	out := make(map[string][]string, len(index))
	for issue, ids := range index {
		out[strconv.Itoa(issue)] = ids
	}
	return s.writeDocument(DocProcessedComments, out)
}
