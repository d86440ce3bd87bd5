package octgo

import (
	"log/slog"
	"os"

	"github.com/hupe1980/octgo/octree"
)

// Logger wraps slog.Logger with octgo-specific helpers, keeping field names
// consistent across the build pipeline.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithDxyz adds a chunk address field to the logger.
func (l *Logger) WithDxyz(a octree.Dxyz) *Logger {
	return &Logger{Logger: l.Logger.With("chunk", a.String())}
}

// LogSerialize logs one chunk serialization.
func (l *Logger) LogSerialize(a octree.Dxyz, points uint64, err error) {
	if err != nil {
		l.Error("chunk serialization failed",
			"chunk", a.String(),
			"error", err,
		)
	} else {
		l.Debug("chunk serialized",
			"chunk", a.String(),
			"points", points,
		)
	}
}

// LogLoad logs one chunk rematerialization.
func (l *Logger) LogLoad(a octree.Dxyz, points uint64, err error) {
	if err != nil {
		l.Error("chunk load failed",
			"chunk", a.String(),
			"error", err,
		)
	} else {
		l.Debug("chunk loaded",
			"chunk", a.String(),
			"points", points,
		)
	}
}

// LogPurge logs one purge pass.
func (l *Logger) LogPurge(submitted int) {
	l.Debug("purge submitted chunks", "count", submitted)
}

// LogClose logs the final drain.
func (l *Logger) LogClose(info Info) {
	l.Info("cache drained",
		"alive", info.Alive,
		"written", info.Written,
		"read", info.Read,
	)
}
