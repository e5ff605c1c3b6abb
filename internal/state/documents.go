package state

import (
	"sort"
	"strings"
	"time"
)

// Document file names under the state directory. The lock protecting each
// document is named after the file with the extension stripped.
const (
	DocProcessedIssues   = "processed-issues.json"
	DocProcessedComments = "processed-comments.json"
	DocRunningTasks      = "running-tasks.json"
	DocPendingTasks      = "pending-tasks.json"
	DocLastRun           = "last-run.json"
)

// Documents lists every state document, in audit order.
var Documents = []string{
	DocProcessedIssues,
	DocProcessedComments,
	DocRunningTasks,
	DocPendingTasks,
	DocLastRun,
}

// resourceKey derives the lock resource name from a document file name.
func resourceKey(doc string) string {
	return strings.TrimSuffix(doc, ".json")
}

// IssueSet is the in-memory form of the processed-issue document.
type IssueSet map[int]struct{}

// Contains reports whether the issue number is in the set.
func (s IssueSet) Contains(issue int) bool {
	_, ok := s[issue]
	return ok
}

// Add inserts an issue number.
func (s IssueSet) Add(issue int) {
	s[issue] = struct{}{}
}

// Sorted returns the issue numbers in ascending order, which is also the
// on-disk serialization order.
func (s IssueSet) Sorted() []int {
	issues := make([]int, 0, len(s))
	for issue := range s {
		issues = append(issues, issue)
	}
	sort.Ints(issues)
	return issues
}

// CommentIndex maps an issue number to the comment ids already handled for it.
type CommentIndex map[int][]string

// Contains reports whether commentID is recorded for the issue.
func (c CommentIndex) Contains(issue int, commentID string) bool {
	for _, id := range c[issue] {
		if id == commentID {
			return true
		}
	}
	return false
}

// Add records commentID for the issue if not already present.
func (c CommentIndex) Add(issue int, commentID string) {
	if !c.Contains(issue, commentID) {
		c[issue] = append(c[issue], commentID)
	}
}

// TaskInfo is one running-task descriptor. Fields beyond StartTimeField are
// opaque metadata owned by whichever worker registered the task.
type TaskInfo map[string]any

// StartTimeField is the descriptor key holding the task's ISO-8601 start time.
const StartTimeField = "startTime"

// StartTime parses the descriptor's start time. The second return value is
// false when the field is missing or unparsable; such entries are never
// trusted for age-based decisions and cleanup purges them unconditionally.
func (t TaskInfo) StartTime() (time.Time, bool) {
	raw, ok := t[StartTimeField].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// TaskMap is the in-memory form of the running-task document.
type TaskMap map[string]TaskInfo

// TaskList is the pending-task document: an ordered sequence of descriptors
// produced and consumed by external schedulers, opaque to the store beyond
// being an array of objects.
type TaskList []map[string]any

// LastRun is the last-run metadata record, overwritten wholesale on each
// save. SaveLastRun stamps TimestampField; everything else is caller data.
type LastRun map[string]any

// TimestampField is the LastRun key holding the ISO-8601 save time.
const TimestampField = "timestamp"

// Timestamp parses the record's save time.
func (r LastRun) Timestamp() (time.Time, bool) {
	raw, ok := r[TimestampField].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
