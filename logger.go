package lensing

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/lensing/gpucore"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// attached holds the adapters of live drivers so SetLogger reaches the
// backends.
var (
	attachedMu sync.Mutex
	attached   = make(map[gpucore.Adapter]int)
)

// SetLogger configures the logger for lensing and its backends.
// By default, lensing produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by lensing:
//   - [slog.LevelDebug]: dispatches, buffer allocations, completeness polls
//   - [slog.LevelInfo]: lifecycle events (render started, render complete, GPU selected)
//   - [slog.LevelWarn]: non-fatal issues (export failure, dispatch skipped)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	lensing.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	attachedMu.Lock()
	defer attachedMu.Unlock()
	for a := range attached {
		propagateLogger(a, l)
	}
}

// Logger returns the current logger used by lensing.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by adapters that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to an adapter if it implements
// the loggerSetter interface.
func propagateLogger(a gpucore.Adapter, l *slog.Logger) {
	if ls, ok := a.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// attachAdapter registers a for logger propagation and hands it the
// current logger.
func attachAdapter(a gpucore.Adapter) {
	attachedMu.Lock()
	defer attachedMu.Unlock()
	attached[a]++
	propagateLogger(a, Logger())
}

// detachAdapter undoes one attachAdapter call.
func detachAdapter(a gpucore.Adapter) {
	attachedMu.Lock()
	defer attachedMu.Unlock()
	if attached[a]--; attached[a] <= 0 {
		delete(attached, a)
	}
}
