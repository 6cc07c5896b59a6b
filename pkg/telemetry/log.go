package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/trunkwave/trunkwave/pkg/logger"
)

// EventLogWriter appends one line per event to a log file, each line the
// event's ISO-like RFC3339 timestamp followed by its fields. A flat
// append-only text log rather than a database table, since this bus has
// no database dependency of its own.
type EventLogWriter struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	log *logger.Logger
}

// OpenEventLogWriter appends to (or creates) the log file at path.
func OpenEventLogWriter(path string, log *logger.Logger) (*EventLogWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open event log: %w", err)
	}
	if log != nil {
		log = log.WithComponent("telemetry")
	}
	return &EventLogWriter{f: f, w: bufio.NewWriter(f), log: log}, nil
}

// Write appends e as one line and flushes immediately so a crash doesn't
// lose the most recent events.
func (w *EventLogWriter) Write(e Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintln(w.w, e.String()); err != nil {
		if w.log != nil {
			w.log.Error("event log write failed", logger.String("err", err.Error()))
		}
		return err
	}
	return w.w.Flush()
}

// Close flushes and closes the underlying file.
func (w *EventLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}
