package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"poppo/internal/logging"
)

// BackupSuffix is appended to a target path to form its last-known-good copy.
const BackupSuffix = ".backup"

// Writer performs durable replace-on-write updates with best-effort backups.
type Writer struct {
	logger *slog.Logger
}

// NewWriter constructs a Writer. A nil logger disables backup warnings.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logging.NewComponentLogger(logger, "atomicfile")}
}

// WriteFile writes data to path so concurrent readers see either the previous
// content or the new content in full. The previous content, when present as a
// regular file, is preserved at path+BackupSuffix before the replace.
func (w *Writer) WriteFile(path string, data []byte) error {
	tmpPath := fmt.Sprintf("%s.tmp.%d.%d", path, os.Getpid(), time.Now().UnixNano())

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	w.backup(path)

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// backup copies the current target to its .backup sibling. Missing targets
// and non-regular files (sockets, fifos) are skipped; copy failures are
// logged and swallowed so a broken backup never blocks the write itself.
func (w *Writer) backup(path string) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && w.logger != nil {
			w.logger.Warn("stat before backup failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
		}
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	if err := copyFile(path, path+BackupSuffix); err != nil && w.logger != nil {
		w.logger.Warn("backup copy failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteFile writes data to path atomically using a Writer without backup
// warnings. Convenience for callers that have no logger on hand.
func WriteFile(path string, data []byte) error {
	return NewWriter(nil).WriteFile(path, data)
}
