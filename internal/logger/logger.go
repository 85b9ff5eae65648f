// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// It wraps the standard log package; output goes to stderr so it never mixes with reports
// written to stdout.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs resolution passes in detail.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel reports recoverable data problems such as corrupt days.
	WarnLevel
	// ErrorLevel reports failed commands, storage or notification errors.
	ErrorLevel
)

var levelNames = map[string]Level{
	"debug": DebugLevel,
	"info":  InfoLevel,
	"warn":  WarnLevel,
	"error": ErrorLevel,
}

// ParseLevel maps a level name to a Level, reporting whether it was recognized.
func ParseLevel(name string) (Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// Logger provides leveled logging
type Logger struct {
	level  Level
	logger *log.Logger
}

// defaultLogger starts at warn so library use without Init stays quiet.
var defaultLogger = &Logger{
	level:  WarnLevel,
	logger: log.New(os.Stderr, "", log.LstdFlags),
}

// Init initializes the default logger with the specified level and format.
// Unknown levels fall back to info. The "text" format adds timestamps and
// source locations; "plain" prints the bare message.
func Init(level string, format string) {
	l, ok := ParseLevel(level)
	if !ok {
		l = InfoLevel
	}

	flags := 0
	if strings.ToLower(format) == "text" {
		flags = log.LstdFlags | log.Lmicroseconds | log.Lshortfile
	}

	defaultLogger = &Logger{
		level:  l,
		logger: log.New(os.Stderr, "", flags),
	}
}

// SetOutput redirects the default logger, mainly for tests.
func SetOutput(w io.Writer) {
	defaultLogger.logger.SetOutput(w)
}

// SetLevel changes the default logger's threshold.
func SetLevel(l Level) {
	defaultLogger.level = l
}

// Enabled reports whether messages at l are written.
func Enabled(l Level) bool {
	return defaultLogger.level <= l
}

func output(l Level, tag, format string, args ...interface{}) {
	if !Enabled(l) {
		return
	}
	_ = defaultLogger.logger.Output(3, fmt.Sprintf(tag+format, args...))
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	output(DebugLevel, "[DEBUG] ", format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	output(InfoLevel, "[INFO] ", format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	output(WarnLevel, "[WARN] ", format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	output(ErrorLevel, "[ERROR] ", format, args...)
}

// Fatal logs a message and exits
func Fatal(format string, args ...interface{}) {
	_ = defaultLogger.logger.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
