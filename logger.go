package ggframe

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/ggframe/backend"
	"github.com/gogpu/ggframe/backend/soft"
	"github.com/gogpu/ggframe/backend/wgpu"
	"github.com/gogpu/ggframe/frame"
	"github.com/gogpu/ggframe/render"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so SetLogger
// can be called while a pipeline is running.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for ggframe and all its sub-packages.
// By default ggframe produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by ggframe:
//   - [slog.LevelDebug]: stage timings, slot waits, GPU timestamps
//   - [slog.LevelInfo]: setup, backend and adapter selection
//   - [slog.LevelWarn]: skipped draw commands, swapchain rebuilds
//   - [slog.LevelError]: upload and producer failures
//
// Example:
//
//	ggframe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	render.SetLogger(l)
	frame.SetLogger(l)
	backend.SetLogger(l)
	soft.SetLogger(l)
	wgpu.SetLogger(l)
}

// Logger returns the current logger used by ggframe.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
