package testutil

import (
	"sync"

	"github.com/hupe1980/taskmesh/logging"
)

var _ logging.Logger = (*CaptureLogger)(nil)

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// CaptureLogger records log calls for assertions.
type CaptureLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *CaptureLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *CaptureLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args) }
func (l *CaptureLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args) }
func (l *CaptureLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args) }
func (l *CaptureLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args) }

// Entries returns a copy of all captured entries.
func (l *CaptureLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]LogEntry(nil), l.entries...)
}

// Find returns the first entry with msg.
func (l *CaptureLogger) Find(msg string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Msg == msg {
			return e, true
		}
	}

	return LogEntry{}, false
}
