package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Time(key string, value time.Time) Attr { return slog.Time(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldResource is the logical name of the document a lock protects.
	FieldResource = "resource"
	// FieldDocument is the state document file name.
	FieldDocument = "document"
	// FieldPID is a recorded lock-holder process id.
	FieldPID = "pid"
	// FieldPath is a filesystem path involved in an operation.
	FieldPath = "path"
	// FieldTaskID is the running-task identifier.
	FieldTaskID = "task_id"
	// FieldIssue is a GitHub issue number tracked by the store.
	FieldIssue = "issue"
	// FieldRunID identifies one daemon audit pass.
	FieldRunID = "run_id"
	// FieldEventType categorizes warnings for log scraping.
	FieldEventType = "event_type"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }
