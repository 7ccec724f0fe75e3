// Package logging provides leveled, component-scoped console logging for
// the pipeline. Loggers are cheap value-style copies; deriving a child with
// WithComponent or WithTraceID never mutates the parent.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config string into a Level. Unknown strings fall
// back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// state is shared by a logger and all of its children so that SetLevel and
// SetOutput apply across the whole tree.
type state struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
}

// Logger writes structured log lines to a single destination.
// The zero value is not usable; construct with New.
type Logger struct {
	st        *state
	component string
	traceID   string
}

// New creates a Logger writing to stdout at info level.
func New() *Logger {
	return &Logger{
		st: &state{
			output:   os.Stdout,
			minLevel: LevelInfo,
		},
	}
}

// WithComponent returns a child logger tagged with a component name
// (typically an agent name or "bus").
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{st: l.st, component: component, traceID: l.traceID}
}

// WithTraceID returns a child logger tagged with a trace id.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{st: l.st, component: l.component, traceID: traceID}
}

// SetLevel sets the minimum level for this logger and all loggers derived
// from the same root.
func (l *Logger) SetLevel(level Level) {
	l.st.mu.Lock()
	defer l.st.mu.Unlock()
	l.st.minLevel = level
}

// SetOutput redirects log output (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.st.mu.Lock()
	defer l.st.mu.Unlock()
	l.st.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.log(LevelError, msg, fields...)
}

// formatFields renders fields as sorted key=value pairs.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes one line: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]any) {
	l.st.mu.Lock()
	defer l.st.mu.Unlock()

	if levelPriority[level] < levelPriority[l.st.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var f map[string]any
	if len(fields) > 0 && fields[0] != nil {
		f = fields[0]
	}
	if l.traceID != "" {
		merged := make(map[string]any, len(f)+1)
		for k, v := range f {
			merged[k] = v
		}
		merged["trace_id"] = l.traceID
		f = merged
	}
	fieldStr := formatFields(f)

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.st.output.Write([]byte(line))
}
