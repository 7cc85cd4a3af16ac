package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmmirabile/Jex/internal/ports"
)

// HCLogger implements ports.Logger on top of go-hclog.
type HCLogger struct {
	logger hclog.Logger
	level  *sharedLevel
}

// sharedLevel keeps derived loggers (With/Named) in step with SetLevel.
type sharedLevel struct {
	mu    sync.RWMutex
	level ports.Level
}

func (s *sharedLevel) get() ports.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

func (s *sharedLevel) set(level ports.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// Options configures an HCLogger.
type Options struct {
	// Name tags every entry (default: "jex").
	Name string
	// Output receives log lines (default: os.Stderr).
	Output io.Writer
	// Level is the minimum level emitted. The zero value is LevelDebug.
	Level ports.Level
	// JSON switches to JSON-formatted entries.
	JSON bool
	// DisableTime omits timestamps, mostly useful for tests.
	DisableTime bool
}

// NewHCLogger creates a logger writing through go-hclog.
func NewHCLogger(opts Options) *HCLogger {
	if opts.Name == "" {
		opts.Name = "jex"
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	l := hclog.New(&hclog.LoggerOptions{
		Name:        opts.Name,
		Level:       toHCLevel(opts.Level),
		Output:      opts.Output,
		JSONFormat:  opts.JSON,
		DisableTime: opts.DisableTime,
		Color:       hclog.ColorOff,
	})

	return &HCLogger{
		logger: l,
		level:  &sharedLevel{level: opts.Level},
	}
}

// Debug logs a debug message.
func (l *HCLogger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	if l.level.get() > ports.LevelDebug {
		return
	}
	l.logger.Debug(msg, toArgs(fields)...)
}

// Info logs an informational message.
func (l *HCLogger) Info(_ context.Context, msg string, fields ...ports.Field) {
	if l.level.get() > ports.LevelInfo {
		return
	}
	l.logger.Info(msg, toArgs(fields)...)
}

// Warn logs a warning message.
func (l *HCLogger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	if l.level.get() > ports.LevelWarn {
		return
	}
	l.logger.Warn(msg, toArgs(fields)...)
}

// Error logs an error message.
func (l *HCLogger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.logger.Error(msg, toArgs(fields)...)
}

// With returns a new logger with additional fields.
func (l *HCLogger) With(fields ...ports.Field) ports.Logger {
	return &HCLogger{
		logger: l.logger.With(toArgs(fields)...),
		level:  l.level,
	}
}

// Named returns a logger for a sub-system, e.g. "loader" or "manager".
func (l *HCLogger) Named(name string) ports.Logger {
	return &HCLogger{
		logger: l.logger.Named(name),
		level:  l.level,
	}
}

// Level returns the minimum log level.
func (l *HCLogger) Level() ports.Level {
	return l.level.get()
}

// SetLevel sets the minimum log level for this logger and everything derived from it.
func (l *HCLogger) SetLevel(level ports.Level) {
	l.level.set(level)
	l.logger.SetLevel(toHCLevel(level))
}

func toHCLevel(level ports.Level) hclog.Level {
	switch level {
	case ports.LevelDebug:
		return hclog.Debug
	case ports.LevelInfo:
		return hclog.Info
	case ports.LevelWarn:
		return hclog.Warn
	case ports.LevelError:
		return hclog.Error
	default:
		return hclog.Warn
	}
}

func toArgs(fields []ports.Field) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

// Ensure HCLogger implements Logger.
var _ ports.Logger = (*HCLogger)(nil)
