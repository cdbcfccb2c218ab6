// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     logging
// Description: Structured logger with key/value fields and text/JSON output
// Author:      Yida
// Created:     2026-01-12
// License:     MIT
// ============================================================================

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format selects the output encoding
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Fields holds contextual key/value pairs attached to a log entry
type Fields map[string]interface{}

// Config holds logger configuration
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
	Name   string
}

// Logger is a leveled, structured logger. It is safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	level  Level
	format Format
	output io.Writer
	name   string
	fields Fields
}

// New creates a logger with the given component name and default settings
// (info level, text format, stdout).
func New(name string) *Logger {
	return NewWithConfig(Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: os.Stdout,
		Name:   name,
	})
}

// NewWithConfig creates a logger from an explicit configuration
func NewWithConfig(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Logger{
		level:  cfg.Level,
		format: cfg.Format,
		output: cfg.Output,
		name:   cfg.Name,
	}
}

// WithLevel returns a copy of the logger with a new minimum level
func (l *Logger) WithLevel(level Level) *Logger {
	clone := l.clone()
	clone.level = level
	return clone
}

// WithOutput returns a copy of the logger writing to a different destination
func (l *Logger) WithOutput(output io.Writer) *Logger {
	clone := l.clone()
	clone.output = output
	return clone
}

// WithFields returns a copy of the logger with fields added to every entry
func (l *Logger) WithFields(fields Fields) *Logger {
	clone := l.clone()
	merged := make(Fields, len(clone.fields)+len(fields))
	for k, v := range clone.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	clone.fields = merged
	return clone
}

func (l *Logger) clone() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		level:  l.level,
		format: l.format,
		output: l.output,
		name:   l.name,
		fields: l.fields,
	}
}

// Debug logs a debug message with optional key/value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs an info message with optional key/value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with optional key/value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message with optional key/value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues...)
}

func (l *Logger) log(level Level, msg string, keysAndValues ...interface{}) {
	if level < l.level {
		return
	}

	fields := make(Fields, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}

	now := time.Now()

	var line string
	if l.format == FormatJSON {
		line = l.formatJSON(now, level, msg, fields)
	} else {
		line = l.formatText(now, level, msg, fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.output, line)
}

func (l *Logger) formatText(ts time.Time, level Level, msg string, fields Fields) string {
	var b strings.Builder
	b.WriteString(ts.Format("2006-01-02 15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString("]")
	if l.name != "" {
		b.WriteString(" [")
		b.WriteString(l.name)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	return b.String()
}

func (l *Logger) formatJSON(ts time.Time, level Level, msg string, fields Fields) string {
	entry := make(map[string]interface{}, len(fields)+4)
	entry["timestamp"] = ts.Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg
	if l.name != "" {
		entry["logger"] = l.name
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			entry[k] = err.Error()
			continue
		}
		entry[k] = v
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":"error","message":"log marshal failed: %v"}`, err)
	}
	return string(data)
}
