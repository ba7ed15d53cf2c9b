// Package triplog writes one CSV record per polling cycle to a
// timestamp-named file, reproducing the trip-logging feature of the tool
// this one supersedes.
package triplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

// DefaultFilenamePattern names one log file per run, e.g.
// "data_20260731_143210.csv".
const DefaultFilenamePattern = "data_%Y%m%d_%H%M%S.csv"

// Logger appends one CSV row per Log call to a file named from the
// process start time.
type Logger struct {
	file    *os.File
	writer  *csv.Writer
	columns []string
}

// Open creates dir (if needed) and a new CSV file inside it named by
// expanding pattern (a strftime layout) against started, then writes the
// header row.
func Open(dir, pattern string, started time.Time, columns []string) (*Logger, error) {
	if pattern == "" {
		pattern = DefaultFilenamePattern
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("triplog: creating log directory %s: %w", dir, err)
	}

	name, err := strftime.Format(pattern, started)
	if err != nil {
		return nil, fmt.Errorf("triplog: expanding filename pattern %q: %w", pattern, err)
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("triplog: creating log file: %w", err)
	}

	w := csv.NewWriter(f)
	header := append([]string{"date", "time"}, columns...)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("triplog: writing header: %w", err)
	}
	w.Flush()

	return &Logger{file: f, writer: w, columns: columns}, nil
}

// Log appends one row: the current date/time, then one column per value
// in the same order Open was given, formatted with fmt.Sprint.
func (l *Logger) Log(now time.Time, values []any) error {
	if len(values) != len(l.columns) {
		return fmt.Errorf("triplog: expected %d values, got %d", len(l.columns), len(values))
	}
	row := make([]string, 0, len(values)+2)
	row = append(row, now.Format("02/01/2006"), now.Format("15:04:05"))
	for _, v := range values {
		row = append(row, fmt.Sprint(v))
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("triplog: writing row: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.writer.Flush()
	return l.file.Close()
}
