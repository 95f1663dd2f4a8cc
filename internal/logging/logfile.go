package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const logFilePrefix = "pgclusterops-"

// Output selects where log records go.
//
//   - "" or "-": stderr
//   - "none": discarded
//   - a path ending in a separator, or an existing directory: a new
//     timestamped file in that directory
//   - any other path: that file, appended to
type Output struct {
	Path string
	// RetentionDays removes older timestamped files from the directory
	// when a new one is created. Zero keeps everything.
	RetentionDays int

	file   *os.File
	writer io.Writer
}

// Open resolves o and opens the target.
func (o *Output) Open(now time.Time) error {
	switch strings.ToLower(o.Path) {
	case "", "-":
		o.writer = os.Stderr
		return nil
	case "none":
		o.writer = io.Discard
		return nil
	}

	target := o.Path
	if isDirTarget(target) {
		dir := filepath.Clean(target)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating log directory %q: %w", dir, err)
		}
		if err := RemoveExpired(dir, o.RetentionDays, now); err != nil {
			return err
		}
		target = filepath.Join(dir, FileName(now))
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %q: %w", target, err)
	}
	o.Path = target
	o.file = f
	o.writer = f
	return nil
}

func isDirTarget(p string) bool {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return true
	}
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// Writer returns the opened destination.
func (o *Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// Close closes the log file, if one was opened.
func (o *Output) Close() error {
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}

// FileName returns pgclusterops-YYYYMMDD-HHMMSS-mmm.log for t in UTC.
func FileName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%s-%03d.log", logFilePrefix, t.Format("20060102-150405"), t.Nanosecond()/1_000_000)
}

// RemoveExpired deletes pgclusterops-*.log files in dir last modified more
// than retentionDays before now. Files that cannot be removed are skipped.
func RemoveExpired(dir string, retentionDays int, now time.Time) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading log directory %q: %w", dir, err)
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
	return nil
}
