package logger

import (
	"github.com/rs/zerolog"
)

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l = l.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogPage logs the outcome of one result page.
func LogPage(l Logger, target string, page, lastPage, records int) {
	l.InfoWithFields("Page extracted", map[string]interface{}{
		"target":    target,
		"page":      page,
		"last_page": lastPage,
		"records":   records,
	})
}

// LogTargetComplete logs a finalized target.
func LogTargetComplete(l Logger, target string, records, skipped int, path string) {
	fields := map[string]interface{}{
		"target":  target,
		"records": records,
		"path":    path,
	}
	if skipped > 0 {
		fields["skipped_pages"] = skipped
		l.WarnWithFields("Target completed with skipped pages", fields)
		return
	}
	l.InfoWithFields("Target completed", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
