// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// Design goals:
//   - Simple API (Errorf, Infof, Debugf, Tracef)
//   - Centralized verbosity control
//   - Zero formatting logic at call sites
//   - Structured output through log/slog, optionally rotated on disk
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("evaluating chain")
//	logger.Debugf("forward=%f strike=%f", forward, strike)
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

// levelTrace sits below slog.LevelDebug so trace output can be filtered
// separately by handlers.
const levelTrace = slog.Level(-8)

// Config selects the output format and destination.
type Config struct {
	Level      string `mapstructure:"level"       validate:"omitempty,oneof=error info debug trace"`
	Format     string `mapstructure:"format"      validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`        // empty writes to stderr
	MaxSize    int    `mapstructure:"max_size"`    // megabytes per file
	MaxBackups int    `mapstructure:"max_backups"` // rotated files to keep
	MaxAge     int    `mapstructure:"max_age"`     // days
	Compress   bool   `mapstructure:"compress"`
}

var (
	// current holds the active verbosity level.
	// Only messages with level <= current are logged.
	current atomic.Int32

	// base is the slog logger every helper writes through.
	base atomic.Pointer[slog.Logger]

	// levelVar gates the handler so slog drops records early.
	levelVar = new(slog.LevelVar)
)

func init() {
	current.Store(int32(Info))
	levelVar.Set(slog.LevelDebug)
	base.Store(slog.New(newHandler(os.Stderr, "text")))
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == levelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Configure installs a handler built from cfg and applies its level.
// A non-empty File is written through a rotating lumberjack writer.
//
// The returned io.Closer releases the log file; it is a no-op for stderr.
func Configure(cfg Config) io.Closer {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		w, closer = lj, lj
	}
	base.Store(slog.New(newHandler(w, cfg.Format)))
	if cfg.Level != "" {
		SetVerbosity(int(ParseLevel(cfg.Level)))
	}
	return closer
}

// SetOutput redirects all logging to w in the given format ("json" or "text").
// Mainly useful in tests.
func SetOutput(w io.Writer, format string) {
	base.Store(slog.New(newHandler(w, format)))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel maps "error", "info", "debug" and "trace" to a Level.
// Unknown names fall back to Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error
	case "debug":
		return Debug
	case "trace":
		return Trace
	}
	return Info
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during application startup
// (e.g. after parsing CLI flags).
func SetVerbosity(v int) {
	current.Store(int32(v))
	if Level(v) >= Trace {
		levelVar.Set(levelTrace)
	} else {
		levelVar.Set(slog.LevelDebug)
	}
}

// Verbosity returns the active verbosity level.
func Verbosity() Level {
	return Level(current.Load())
}

// L returns the underlying structured logger for callers that want to attach
// attributes instead of formatting.
func L() *slog.Logger {
	return base.Load()
}

// logf is the internal logging helper.
// It checks verbosity and delegates formatting to fmt.
func logf(l Level, sl slog.Level, format string, args ...any) {
	if Verbosity() >= l {
		base.Load().Log(context.Background(), sl, fmt.Sprintf(format, args...))
	}
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, slog.LevelError, format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, slog.LevelInfo, format, args...)
}

// Debugf logs debugging information.
// Use this for diagnostic output useful during development.
func Debugf(format string, args ...any) {
	logf(Debug, slog.LevelDebug, format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, levelTrace, format, args...)
}
