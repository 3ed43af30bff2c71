package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents different logging verbosity levels
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = map[string]Level{
	"ERROR": LevelError,
	"WARN":  LevelWarn,
	"INFO":  LevelInfo,
	"DEBUG": LevelDebug,
}

// ParseLevel maps ERROR, WARN, INFO or DEBUG (any case) to a Level
func ParseLevel(s string) (Level, error) {
	level, ok := levelNames[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Logger provides leveled logging on top of the standard logger
type Logger struct {
	level  Level
	prefix string
}

// New creates a logger with the specified level. prefix is prepended in
// brackets, e.g. "Server" logs as "[Server] ...".
func New(level Level, prefix string) *Logger {
	return &Logger{level: level, prefix: prefix}
}

// FromEnv creates a logger based on the LOG_LEVEL environment variable.
// Unset or unknown values fall back to INFO.
func FromEnv(prefix string) *Logger {
	level := LevelInfo
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := ParseLevel(raw); err == nil {
			level = parsed
		} else {
			log.Printf("[%s] %v, using INFO", prefix, err)
		}
	}
	return New(level, prefix)
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		log.Printf("[%s] %s: %s", l.prefix, level, msg)
		return
	}
	log.Printf("%s: %s", level, msg)
}

func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

func (l *Logger) Warnf(format string, args ...interface{}) { l.logf(LevelWarn, format, args...) }

func (l *Logger) Infof(format string, args ...interface{}) { l.logf(LevelInfo, format, args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }

// Level returns the current log level
func (l *Logger) Level() Level {
	return l.level
}
