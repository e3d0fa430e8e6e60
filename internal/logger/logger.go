// Package logger provides leveled, module-tagged logging for the uploader.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel represents the severity of a log message
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	SILENT // No logging
)

var (
	levelNames = map[LogLevel]string{
		DEBUG:  "DEBUG",
		INFO:   "INFO",
		WARN:   "WARN",
		ERROR:  "ERROR",
		SILENT: "SILENT",
	}

	levelColors = map[LogLevel]string{
		DEBUG: "\033[36m", // Cyan
		INFO:  "\033[32m", // Green
		WARN:  "\033[33m", // Yellow
		ERROR: "\033[31m", // Red
	}

	resetColor = "\033[0m"
)

// Logger writes leveled lines of the form "[LEVEL] [Module] message".
type Logger struct {
	level    atomic.Int32
	useColor bool

	mu  sync.Mutex // serializes writes to out
	out *log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the global logger (call once at startup)
func Init(level LogLevel, output io.Writer, useColor bool) {
	once.Do(func() {
		defaultLogger = New(level, output, useColor)
	})
}

// Default returns the global logger, creating an INFO logger on stderr if
// Init has not been called.
func Default() *Logger {
	Init(INFO, os.Stderr, false)
	return defaultLogger
}

// New creates a new Logger instance
func New(level LogLevel, output io.Writer, useColor bool) *Logger {
	if output == nil {
		output = os.Stderr
	}
	l := &Logger{
		useColor: useColor,
		out:      log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	l.level.Store(int32(level))
	return l
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(SILENT, io.Discard, false)
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// Module returns a handle that tags every line with the given module name.
func (l *Logger) Module(name string) *Module {
	return &Module{parent: l, name: name}
}

func (l *Logger) log(level LogLevel, module string, format string, args ...any) {
	if level < l.GetLevel() || level >= SILENT {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if l.useColor {
		prefix = levelColors[level] + prefix + resetColor
	}
	if module != "" {
		prefix += " [" + module + "]"
	}

	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.out.Printf("%s %s", prefix, msg)
	l.mu.Unlock()
}

// Debug logs a debug message
func (l *Logger) Debug(module string, format string, args ...any) {
	l.log(DEBUG, module, format, args...)
}

// Info logs an info message
func (l *Logger) Info(module string, format string, args ...any) {
	l.log(INFO, module, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(module string, format string, args ...any) {
	l.log(WARN, module, format, args...)
}

// Error logs an error message
func (l *Logger) Error(module string, format string, args ...any) {
	l.log(ERROR, module, format, args...)
}

// Module is a Logger bound to one module tag.
type Module struct {
	parent *Logger
	name   string
}

func (m *Module) Debug(format string, args ...any) { m.parent.log(DEBUG, m.name, format, args...) }
func (m *Module) Info(format string, args ...any)  { m.parent.log(INFO, m.name, format, args...) }
func (m *Module) Warn(format string, args ...any)  { m.parent.log(WARN, m.name, format, args...) }
func (m *Module) Error(format string, args ...any) { m.parent.log(ERROR, m.name, format, args...) }

// Global logger functions (use default logger)

// SetLevel sets the global log level
func SetLevel(level LogLevel) {
	Default().SetLevel(level)
}

// GetLevel returns the global log level
func GetLevel() LogLevel {
	return Default().GetLevel()
}

// For returns a module handle on the global logger.
func For(module string) *Module {
	return Default().Module(module)
}

// Debug logs a debug message using the global logger
func Debug(module string, format string, args ...any) {
	Default().Debug(module, format, args...)
}

// Info logs an info message using the global logger
func Info(module string, format string, args ...any) {
	Default().Info(module, format, args...)
}

// Warn logs a warning message using the global logger
func Warn(module string, format string, args ...any) {
	Default().Warn(module, format, args...)
}

// Error logs an error message using the global logger
func Error(module string, format string, args ...any) {
	Default().Error(module, format, args...)
}

// ParseLevel parses a log level string
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "silent", "none":
		return SILENT, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s", s)
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
