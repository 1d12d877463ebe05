// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tinker

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the package logger. By default tinker produces no
// log output. Pass nil to restore silence.
//
// The logger is read when a Controller is created; controllers built
// earlier keep the logger they were given.
//
// Log levels used by tinker:
//   - [slog.LevelDebug]: reflection and pass detail
//   - [slog.LevelInfo]: activation and graph lifecycle
//   - [slog.LevelWarn]: missing functions, assets and unsupported option types
//   - [slog.LevelError]: GPU resource creation failures
//
// Example:
//
//	tinker.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
