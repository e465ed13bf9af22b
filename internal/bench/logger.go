package bench

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Level is a log verbosity.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

// ParseLevel converts a level name (debug, info, warn, error) to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// Logger writes leveled, name-tagged lines.
type Logger struct {
	name   string
	level  Level
	logger *log.Logger
}

// NewLogger returns a Logger writing to w.
func NewLogger(name string, level Level, w io.Writer) *Logger {
	return &Logger{
		name:   name,
		level:  level,
		logger: log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.level >= LevelDebug {
		l.log("DEBUG", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l.level >= LevelInfo {
		l.log("INFO", format, args...)
	}
}

func (l *Logger) Warningf(format string, args ...any) {
	if l.level >= LevelWarning {
		l.log("WARN", format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log("ERROR", format, args...)
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *Logger) log(levelStr string, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}
