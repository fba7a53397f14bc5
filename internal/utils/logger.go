package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// LogFormat selects the logrus formatter.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// ParseLogFormat validates a --log-format value.
func ParseLogFormat(s string) (LogFormat, error) {
	switch f := LogFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", LogFormatText:
		return LogFormatText, nil
	case LogFormatJSON:
		return LogFormatJSON, nil
	}
	return "", fmt.Errorf("invalid log format %q: expected text or json", s)
}

// Logger provides leveled logging with verbose mode support
type Logger struct {
	entry   *log.Logger
	verbose bool
	mu      sync.RWMutex
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

func newLogger(out io.Writer) *Logger {
	l := log.New()
	l.SetOutput(out)
	l.SetLevel(log.WarnLevel)
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return &Logger{entry: l}
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = newLogger(os.Stderr)
	})
	return globalLogger
}

// Logrus exposes the underlying logger, e.g. for the HTTP server.
func (l *Logger) Logrus() *log.Logger {
	return l.entry
}

// SetVerbose switches between debug level with caller info and warn level.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	if verbose {
		l.entry.SetLevel(log.DebugLevel)
	} else {
		l.entry.SetLevel(log.WarnLevel)
	}
	l.entry.SetReportCaller(verbose)
}

// IsVerbose returns whether verbose logging is enabled
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetFormat selects the text or JSON formatter.
func (l *Logger) SetFormat(format LogFormat) {
	if format == LogFormatJSON {
		l.entry.SetFormatter(&log.JSONFormatter{})
		return
	}
	l.entry.SetFormatter(&log.TextFormatter{DisableTimestamp: !l.IsVerbose(), FullTimestamp: true})
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.SetOutput(w)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debugf is a convenience function for debug logging
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function for info logging
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function for warning logging
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function for error logging
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// WithFields returns an entry carrying structured context.
func WithFields(fields map[string]interface{}) *log.Entry {
	return GetLogger().entry.WithFields(log.Fields(fields))
}

// SetVerboseMode is a convenience function to set global verbose mode
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetLogFormat is a convenience function to set the global log format
func SetLogFormat(format LogFormat) {
	GetLogger().SetFormat(format)
}

// LogOperation logs the start and end of an operation
func LogOperation(operation string, fn func() error) error {
	logger := GetLogger()
	logger.Debug("Starting operation: %s", operation)

	err := fn()

	if err != nil {
		logger.Debug("Operation failed: %s - %v", operation, err)
	} else {
		logger.Debug("Operation completed: %s", operation)
	}

	return err
}
