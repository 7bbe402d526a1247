package core

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides structured logging capabilities
// This abstraction allows swapping logging implementations
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// WithFields returns a new logger with structured fields
	// This enables structured logging with key-value pairs
	WithFields(fields map[string]interface{}) Logger
}

// LoggerConfig configures logger behavior
type LoggerConfig struct {
	// JSONOutput enables JSON structured output
	JSONOutput bool
	// Level sets the minimum log level (DEBUG, INFO, ERROR)
	Level string
	// File, when set, sends every level to a rotating log file instead of
	// stdout/stderr.
	File string
	// MaxSizeMB is the size of a log file before it is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays int
	// Compress gzips rotated files.
	Compress bool
}

var levels = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"ERROR": 2,
}

// defaultLogger implements Logger using Go's standard log package
type defaultLogger struct {
	errorLogger *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
	config      LoggerConfig
	fields      map[string]interface{}
	closer      io.Closer
}

// NewDefaultLogger creates a new default logger implementation
func NewDefaultLogger() Logger {
	return NewLogger(LoggerConfig{Level: "DEBUG"})
}

// NewJSONLogger creates a logger with JSON output enabled
func NewJSONLogger() Logger {
	return NewLogger(LoggerConfig{JSONOutput: true, Level: "DEBUG"})
}

// NewLogger creates a new logger with configuration
func NewLogger(config LoggerConfig) Logger {
	var errOut, out io.Writer = os.Stderr, os.Stdout
	var closer io.Closer
	if config.File != "" {
		lj := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
			LocalTime:  true,
		}
		errOut, out, closer = lj, lj, lj
	}
	return newLogger(config, errOut, out, closer)
}

func newLogger(config LoggerConfig, errOut, out io.Writer, closer io.Closer) *defaultLogger {
	config.Level = strings.ToUpper(config.Level)
	return &defaultLogger{
		errorLogger: log.New(errOut, "[ERROR] ", log.LstdFlags|log.Lshortfile),
		infoLogger:  log.New(out, "[INFO] ", log.LstdFlags|log.Lshortfile),
		debugLogger: log.New(out, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
		config:      config,
		fields:      make(map[string]interface{}),
		closer:      closer,
	}
}

// CloseLogger releases the file sink of a logger created with
// LoggerConfig.File. Other loggers are left untouched.
func CloseLogger(l Logger) error {
	if dl, ok := l.(*defaultLogger); ok && dl.closer != nil {
		return dl.closer.Close()
	}
	return nil
}

// logEntry represents a structured log entry
type logEntry struct {
	Timestamp string                 `json:"timestamp,omitempty"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *defaultLogger) log(level string, logger *log.Logger, message string) {
	if !l.shouldLog(level) {
		return
	}

	// Use depth 3 to skip log(), the level method and Output itself
	if l.config.JSONOutput {
		entry := logEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     level,
			Message:   message,
		}
		if len(l.fields) > 0 {
			entry.Fields = l.fields
		}
		jsonData, err := json.Marshal(entry)
		if err == nil {
			logger.Output(3, string(jsonData))
			return
		}
		logger.Output(3, fmt.Sprintf("[%s] %s %s", level, message, l.formatFields()))
		return
	}

	if len(l.fields) > 0 {
		logger.Output(3, message+" "+l.formatFields())
	} else {
		logger.Output(3, message)
	}
}

// formatFields renders fields as sorted key=value pairs so output is stable.
func (l *defaultLogger) formatFields() string {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, l.fields[k]))
	}
	return strings.Join(parts, " ")
}

// shouldLog checks if the log level should be logged based on config
func (l *defaultLogger) shouldLog(level string) bool {
	configLevel, ok := levels[l.config.Level]
	if !ok {
		configLevel = 0 // Default to DEBUG if invalid
	}
	logLevel, ok := levels[level]
	if !ok {
		return true
	}
	return logLevel >= configLevel
}

// Error logs an error message
func (l *defaultLogger) Error(args ...interface{}) {
	l.log("ERROR", l.errorLogger, fmt.Sprint(args...))
}

// Info logs an informational message
func (l *defaultLogger) Info(args ...interface{}) {
	l.log("INFO", l.infoLogger, fmt.Sprint(args...))
}

// Debug logs a debug message
func (l *defaultLogger) Debug(args ...interface{}) {
	l.log("DEBUG", l.debugLogger, fmt.Sprint(args...))
}

// WithFields returns a new logger with structured fields
// Fields are included in all subsequent log entries
func (l *defaultLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	// New fields override existing ones
	for k, v := range fields {
		newFields[k] = v
	}
	return &defaultLogger{
		errorLogger: l.errorLogger,
		infoLogger:  l.infoLogger,
		debugLogger: l.debugLogger,
		config:      l.config,
		fields:      newFields,
		closer:      l.closer,
	}
}

type nopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Error(args ...interface{}) {}
func (nopLogger) Info(args ...interface{})  {}
func (nopLogger) Debug(args ...interface{}) {}

func (n nopLogger) WithFields(fields map[string]interface{}) Logger { return n }
