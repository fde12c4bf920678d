package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

type Logger struct {
	entry *logrus.Logger
	level LogLevel
}

var defaultLogger *Logger

func init() {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "INFO"
	}
	defaultLogger = NewLoggerWithLevel(ParseLogLevel(logLevelStr))
}

// NewLogger creates a new logger instance with INFO level
func NewLogger() *Logger {
	return NewLoggerWithLevel(InfoLevel)
}

// NewLoggerWithLevel creates a new logger writing to stdout with the given level
func NewLoggerWithLevel(level LogLevel) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(utcFormatter{textFormatter()})
	l.SetLevel(level.logrus())
	return &Logger{entry: l, level: level}
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z",
		DisableColors:   true,
	}
}

type utcFormatter struct {
	logrus.Formatter
}

func (f utcFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.In(time.UTC)
	return f.Formatter.Format(e)
}

// SetOutput redirects the logger, mostly used by tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.SetOutput(w)
}

// SetFormat switches between "text" (default) and "json" output.
func (l *Logger) SetFormat(format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		l.entry.SetFormatter(utcFormatter{&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}})
	default:
		l.entry.SetFormatter(utcFormatter{textFormatter()})
	}
}

// SetLevel changes the minimum level of this logger.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.entry.SetLevel(level.logrus())
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithField returns a logrus entry carrying one structured field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry.WithField(key, value)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Package-level convenience functions using the default logger

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// Configure applies level and format from configuration.
func Configure(level, format string) {
	defaultLogger.SetLevel(ParseLogLevel(level))
	defaultLogger.SetFormat(format)
	defaultLogger.Info("Logger configured with level: %s, format: %s", defaultLogger.level.String(), format)
}

// SetLogLevel sets the log level for the default logger
func SetLogLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}

// GetLogLevel returns the current log level
func GetLogLevel() LogLevel {
	return defaultLogger.level
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

// WithField attaches a structured field using the default logger.
func WithField(key string, value interface{}) *logrus.Entry {
	return defaultLogger.WithField(key, value)
}
