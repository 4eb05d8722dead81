package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"peoplescraper/pkg/config"
)

// Logger is the structured logger passed through the crawl.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	// GetZerolog returns the underlying zerolog instance, nil for test loggers
	GetZerolog() *zerolog.Logger
}

// zl wraps a zerolog.Logger. Child loggers copy it with extra context, so
// siblings never see each other's fields.
type zl struct {
	z zerolog.Logger
}

var levels = map[string]zerolog.Level{
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"disabled": zerolog.Disabled,
}

func parseLogLevel(level string) (zerolog.Level, error) {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level: %q", level)
}

// New builds a logger from cfg: console output on stderr, plus JSON lines
// appended to cfg.File when set.
func New(cfg *config.LoggingConfig) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = consoleWriter(os.Stderr)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = zerolog.MultiLevelWriter(w, f)
	}
	return NewWithWriter(w, level), nil
}

// NewWithWriter builds a logger writing to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	return &zl{z: zerolog.New(w).Level(level).With().Timestamp().Str("app", "peoplescraper").Logger()}
}

// consoleWriter colors levels only when out is a terminal.
func consoleWriter(out *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    !term.IsTerminal(int(out.Fd())),
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
	}
}

func (l *zl) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *zl) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *zl) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *zl) Error(msg string) { l.z.Error().Msg(msg) }

func (l *zl) WithField(key string, value interface{}) Logger {
	return &zl{z: l.z.With().Interface(key, value).Logger()}
}

func (l *zl) WithFields(fields map[string]interface{}) Logger {
	return &zl{z: l.z.With().Fields(fields).Logger()}
}

func (l *zl) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zl{z: l.z.With().Err(err).Logger()}
}

func (l *zl) DebugWithFields(msg string, fields map[string]interface{}) {
	l.z.Debug().Fields(fields).Msg(msg)
}

func (l *zl) InfoWithFields(msg string, fields map[string]interface{}) {
	l.z.Info().Fields(fields).Msg(msg)
}

func (l *zl) WarnWithFields(msg string, fields map[string]interface{}) {
	l.z.Warn().Fields(fields).Msg(msg)
}

func (l *zl) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.z.Error().Fields(fields).Msg(msg)
}

func (l *zl) GetZerolog() *zerolog.Logger {
	return &l.z
}

var globalLogger Logger

// Initialize installs the process-wide logger and points zerolog's global
// logger at it.
func Initialize(cfg *config.LoggingConfig) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger = l
	log.Logger = *l.GetZerolog()
	return nil
}

// GetLogger returns the process-wide logger, defaulting to info on stderr.
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger = NewWithWriter(consoleWriter(os.Stderr), zerolog.InfoLevel)
	}
	return globalLogger
}
