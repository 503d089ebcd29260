// Package audit records bookmark and history mutations as structured events.
package audit

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// EventType represents the type of audit event
type EventType string

const (
	EventBookmarkAdded   EventType = "bookmark_added"
	EventBookmarkUpdated EventType = "bookmark_updated"
	EventBookmarkRemoved EventType = "bookmark_removed"
	EventHistoryVisited  EventType = "history_visited"
	EventHistoryMoved    EventType = "history_moved"
	EventStateError      EventType = "state_error"
)

// Event represents an audit log event
type Event struct {
	Type         EventType
	InvocationID string
	Key          string
	Path         string
	Index        int
	Steps        int
	Error        string
}

// Config holds audit logger configuration
type Config struct {
	// Enabled enables/disables audit logging
	Enabled bool `yaml:"enabled"`

	// Level controls what events are logged
	// "minimal" - bookmark changes only
	// "standard" - bookmark changes and visits
	// "verbose" - everything, including back/forward moves
	Level string `yaml:"level"`

	// Output specifies where to write logs
	// "stdout", "stderr", or a file path
	Output string `yaml:"output"`

	// Format specifies log format: "json" or "text"
	Format string `yaml:"format"`
}

// Auditor is implemented by Logger and NopLogger
type Auditor interface {
	LogBookmarkAdded(invocationID, key, path string, index int, updated bool)
	LogBookmarkRemoved(invocationID, key, path string, index int)
	LogHistoryVisited(invocationID, path string, index int)
	LogHistoryMoved(invocationID, path string, index, steps int)
	LogError(invocationID, errorMsg string)
	Close() error
}

// Logger handles audit logging
type Logger struct {
	mu      sync.RWMutex
	config  Config
	logger  *slog.Logger
	output  io.Writer
	enabled bool
}

// NewLogger creates a new audit logger. An empty Output writes to stderr.
func NewLogger(cfg Config) (*Logger, error) {
	l := &Logger{
		config:  cfg,
		enabled: cfg.Enabled,
	}

	if err := l.setupOutput(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Logger) setupOutput() error {
	var output io.Writer

	switch l.config.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		f, err := os.OpenFile(l.config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) //#nosec G304 -- audit path comes from the user's config
		if err != nil {
			return err
		}
		output = f
	}

	l.output = output

	var handler slog.Handler
	if l.config.Format == "json" {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	l.logger = slog.New(handler)
	return nil
}

// Log logs an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	logger := l.logger
	l.mu.RUnlock()

	if !enabled || logger == nil {
		return
	}

	if !l.shouldLog(event.Type) {
		return
	}

	attrs := []any{
		slog.String("type", string(event.Type)),
	}

	if event.InvocationID != "" {
		attrs = append(attrs, slog.String("invocation_id", event.InvocationID))
	}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}
	if event.Type != EventStateError {
		attrs = append(attrs, slog.Int("index", event.Index))
	}
	if event.Steps != 0 {
		attrs = append(attrs, slog.Int("steps", event.Steps))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	logger.Info("audit", attrs...)
}

func (l *Logger) shouldLog(eventType EventType) bool {
	l.mu.RLock()
	level := l.config.Level
	l.mu.RUnlock()

	switch level {
	case "minimal":
		return eventType == EventBookmarkAdded ||
			eventType == EventBookmarkUpdated ||
			eventType == EventBookmarkRemoved ||
			eventType == EventStateError
	case "standard":
		return eventType != EventHistoryMoved
	case "verbose":
		return true
	default:
		return true
	}
}

// LogBookmarkAdded logs a new or updated bookmark
func (l *Logger) LogBookmarkAdded(invocationID, key, path string, index int, updated bool) {
	eventType := EventBookmarkAdded
	if updated {
		eventType = EventBookmarkUpdated
	}
	l.Log(&Event{
		Type:         eventType,
		InvocationID: invocationID,
		Key:          key,
		Path:         path,
		Index:        index,
	})
}

// LogBookmarkRemoved logs a removed bookmark
func (l *Logger) LogBookmarkRemoved(invocationID, key, path string, index int) {
	l.Log(&Event{
		Type:         EventBookmarkRemoved,
		InvocationID: invocationID,
		Key:          key,
		Path:         path,
		Index:        index,
	})
}

// LogHistoryVisited logs a visit appended to the history
func (l *Logger) LogHistoryVisited(invocationID, path string, index int) {
	l.Log(&Event{
		Type:         EventHistoryVisited,
		InvocationID: invocationID,
		Path:         path,
		Index:        index,
	})
}

// LogHistoryMoved logs a back (negative steps) or forward move
func (l *Logger) LogHistoryMoved(invocationID, path string, index, steps int) {
	l.Log(&Event{
		Type:         EventHistoryMoved,
		InvocationID: invocationID,
		Path:         path,
		Index:        index,
		Steps:        steps,
	})
}

// LogError logs a failure to load or save state
func (l *Logger) LogError(invocationID, errorMsg string) {
	l.Log(&Event{
		Type:         EventStateError,
		InvocationID: invocationID,
		Error:        errorMsg,
	})
}

// Close closes the logger
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.output.(io.Closer); ok {
		if l.output != os.Stdout && l.output != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// NopLogger is a logger that does nothing
type NopLogger struct{}

// NewNopLogger creates a no-op logger
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// LogBookmarkAdded does nothing
func (l *NopLogger) LogBookmarkAdded(_, _, _ string, _ int, _ bool) {}

// LogBookmarkRemoved does nothing
func (l *NopLogger) LogBookmarkRemoved(_, _, _ string, _ int) {}

// LogHistoryVisited does nothing
func (l *NopLogger) LogHistoryVisited(_, _ string, _ int) {}

// LogHistoryMoved does nothing
func (l *NopLogger) LogHistoryMoved(_, _ string, _, _ int) {}

// LogError does nothing
func (l *NopLogger) LogError(_, _ string) {}

// Close does nothing
func (l *NopLogger) Close() error { return nil }
