package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// Entry is one captured log call.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

type entrySink struct {
	mu      sync.Mutex
	entries []Entry
}

// TestLogger captures log calls for assertions. Child loggers from
// WithField/WithFields/WithError share the parent's entries.
type TestLogger struct {
	sink   *entrySink
	fields map[string]interface{}
}

var _ Logger = (*TestLogger)(nil)

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &entrySink{}}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, Entry{Level: level, Message: msg, Fields: merged})
}

func (l *TestLogger) Debug(msg string) { l.log("debug", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("info", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("warn", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("error", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("debug", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("info", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("warn", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("error", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{sink: l.sink, fields: merged}
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return nil
}

// Entries returns a copy of everything logged so far.
func (l *TestLogger) Entries() []Entry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	out := make([]Entry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// EntriesAt returns the entries of one level: debug, info, warn or error.
func (l *TestLogger) EntriesAt(level string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(msg string) bool {
	for _, e := range l.Entries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = nil
}
