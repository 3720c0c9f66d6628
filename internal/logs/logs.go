// Package logs is a small leveled-logging backend in the shape the
// teacher's own github.com/daglabs/btcd/logs package takes: a Backend
// that fans a record out to a set of BackendWriters, and a per-subsystem
// Logger handed out by the backend. It exists so logger.Subsystem can be
// implemented without reaching for a dependency the corpus never pulls
// in for this concern.
package logs

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Level is a logging severity, ordered least to most severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	default:
		return "OFF"
	}
}

// BackendWriter receives every formatted record at or above its minimum
// level.
type BackendWriter struct {
	MinLevel Level
	Writer   io.Writer
}

// NewAllLevelsBackendWriter writes every record regardless of level.
func NewAllLevelsBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{MinLevel: LevelTrace, Writer: w}
}

// NewErrorBackendWriter writes only Warn/Error records, mirroring the
// teacher's split of stdout vs. an error-only rotator.
func NewErrorBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{MinLevel: LevelWarn, Writer: w}
}

// Backend fans records out to its writers and hands out per-subsystem
// Loggers.
type Backend struct {
	writers []*BackendWriter
}

// NewBackend constructs a Backend over the given writers.
func NewBackend(writers []*BackendWriter) *Backend {
	return &Backend{writers: writers}
}

// Logger returns a leveled logger tagged with the given subsystem name.
func (b *Backend) Logger(subsystem string) *Logger {
	return &Logger{backend: b, tag: subsystem, level: LevelInfo}
}

// Logger is a single subsystem's handle onto a Backend.
type Logger struct {
	backend *Backend
	tag     string
	level   Level
}

// SetLevel adjusts the minimum level this subsystem emits.
func (l *Logger) SetLevel(level Level) { l.level = level }

func (l *Logger) log(level Level, format string, args []interface{}) {
	if level < l.level {
		return
	}
	line := fmt.Sprintf("%s [%s] %s: %s\n",
		time.Now().UTC().Format("2006-01-02 15:04:05.000"),
		level, l.tag, fmt.Sprintf(format, args...))
	for _, w := range l.backend.writers {
		if level >= w.MinLevel {
			io.WriteString(w.Writer, line)
		}
	}
}

func (l *Logger) Tracef(format string, args ...interface{}) { l.log(LevelTrace, format, args) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args) }

// LevelFromString parses a level name, matching the teacher's
// config-driven --debuglevel flag plumbing.
func LevelFromString(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "TRACE":
		return LevelTrace, true
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "OFF":
		return LevelOff, true
	default:
		return LevelInfo, false
	}
}
