// Package logging provides component loggers for repocket. The daemon and
// the CLI share this package.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("store")
//	logger.Info("snapshot loaded", "current", 12)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an unknown log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Console mirrors log output to stderr with short timestamps.
	Console bool

	// Components maps component names to level overrides.
	Components map[string]string
}

// Logger is a component logger writing to the log file and optionally to the
// console.
type Logger struct {
	file    *log.Logger
	console *log.Logger
}

// Debug logs a debug message with key/value context.
func (l *Logger) Debug(msg string, args ...any) { l.emit(log.DebugLevel, msg, args...) }

// Info logs an info message with key/value context.
func (l *Logger) Info(msg string, args ...any) { l.emit(log.InfoLevel, msg, args...) }

// Warn logs a warning with key/value context.
func (l *Logger) Warn(msg string, args ...any) { l.emit(log.WarnLevel, msg, args...) }

// Error logs an error with key/value context.
func (l *Logger) Error(msg string, args ...any) { l.emit(log.ErrorLevel, msg, args...) }

// With returns a logger with additional persistent context.
func (l *Logger) With(args ...any) *Logger {
	next := &Logger{file: l.file.With(args...)}
	if l.console != nil {
		next.console = l.console.With(args...)
	}
	return next
}

func (l *Logger) emit(level log.Level, msg string, args ...any) {
	l.file.Log(level, msg, args...)
	if l.console != nil {
		l.console.Log(level, msg, args...)
	}
}

type state struct {
	mu          sync.Mutex
	initialized bool
	fh          *os.File
	level       log.Level
	components  map[string]log.Level
	console     bool
	loggers     map[string]*Logger
}

var global = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]log.Level),
}

// Init initializes the logging system. Loggers obtained before Init write to
// io.Discard.
func Init(cfg Config) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]log.Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	if global.fh != nil {
		_ = global.fh.Close()
	}

	global.fh = fh
	global.level = level
	global.components = components
	global.console = cfg.Console
	global.initialized = true
	global.loggers = make(map[string]*Logger)

	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	global.mu.Lock()
	defer global.mu.Unlock()

	if logger, ok := global.loggers[component]; ok {
		return logger
	}

	logger := newLogger(component)
	global.loggers[component] = logger
	return logger
}

// newLogger builds a component logger. Caller holds global.mu.
func newLogger(component string) *Logger {
	if !global.initialized {
		return &Logger{file: log.NewWithOptions(io.Discard, log.Options{Prefix: component})}
	}

	level := global.level
	if override, ok := global.components[component]; ok {
		level = override
	}

	logger := &Logger{
		file: log.NewWithOptions(global.fh, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}

	if global.console {
		logger.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.initialized {
		return nil
	}

	global.initialized = false
	global.loggers = make(map[string]*Logger)

	if global.fh != nil {
		err := global.fh.Close()
		global.fh = nil
		return err
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/repocket/repocket.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "repocket", "repocket.log")
}
