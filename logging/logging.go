// Package logging provides leveled key=value console output for the
// task core. Components receive a Logger handle at construction; no
// package-level logger state exists, so hosts control the destination
// and verbosity at the assembly point.
package logging

import (
	"fmt"
	"io"
	"os"
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

// Logger writes structured log lines to a single destination.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// New creates a Logger writing to stdout at Info level.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
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

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]any) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Task lifecycle events ---
// Called by the queue, pool, and agents at the points the core emits
// observability events. Formatting stays here so the core packages
// carry no output logic.

// TaskEnqueued logs a task entering the queue.
func (l *Logger) TaskEnqueued(taskID, kind string, priority int) {
	l.Debug("task_enqueued", map[string]any{
		"task":     taskID,
		"kind":     kind,
		"priority": priority,
	})
}

// TaskStarted logs a worker picking up a task.
func (l *Logger) TaskStarted(taskID, kind, workerID string) {
	l.Debug("task_started", map[string]any{
		"task":   taskID,
		"kind":   kind,
		"worker": workerID,
	})
}

// TaskSucceeded logs a task reaching the succeeded state.
func (l *Logger) TaskSucceeded(taskID, kind string, duration time.Duration) {
	l.Info("task_succeeded", map[string]any{
		"task":     taskID,
		"kind":     kind,
		"duration": duration.String(),
	})
}

// TaskFailed logs a task reaching the failed state.
func (l *Logger) TaskFailed(taskID, kind string, err error) {
	fields := map[string]any{
		"task": taskID,
		"kind": kind,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error("task_failed", fields)
}

// PoolStarted logs worker pool startup.
func (l *Logger) PoolStarted(concurrency int) {
	l.Info("pool_started", map[string]any{
		"concurrency": concurrency,
	})
}

// PoolStopped logs worker pool shutdown.
func (l *Logger) PoolStopped(abandoned int, duration time.Duration) {
	fields := map[string]any{
		"duration": duration.String(),
	}
	if abandoned > 0 {
		fields["abandoned"] = abandoned
		l.Warn("pool_stopped", fields)
		return
	}
	l.Info("pool_stopped", fields)
}

// StateChanged logs an agent lifecycle transition.
func (l *Logger) StateChanged(agentID, from, to string) {
	l.Info("state_changed", map[string]any{
		"agent": agentID,
		"from":  from,
		"to":    to,
	})
}

// HandlerFailed logs an event subscriber failure. The publish loop
// continues past the failing handler.
func (l *Logger) HandlerFailed(eventType string, index int, err error) {
	l.Warn("handler_failed", map[string]any{
		"event":   eventType,
		"handler": index,
		"error":   err.Error(),
	})
}
