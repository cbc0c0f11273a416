package server

import (
	"context"
	"log/slog"
)

// LevelTrace mirrors client.LevelTrace: one notch below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 2

func logenabled(log *slog.Logger, lvl slog.Level) bool {
	return log != nil && log.Handler().Enabled(context.Background(), lvl)
}

func logattrs(log *slog.Logger, lvl slog.Level, msg string, attrs ...slog.Attr) {
	if log == nil {
		return
	}
	log.LogAttrs(context.Background(), lvl, msg, attrs...)
}

// debug, trace and logerr take state as an explicit argument rather than
// reading tcb.state themselves: tcb.state is only safe to read under
// tcb.mu, and callers are expected to capture it while holding the lock
// (or in the same unlocked scope the state transition already committed
// to) rather than have these helpers peek at a possibly-unlocked field.
func (tcb *TCB) debug(log *slog.Logger, state State, msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("id", tcb.id.String()), slog.String("state", state.String()))
	logattrs(log, slog.LevelDebug, msg, attrs...)
}

func (tcb *TCB) trace(log *slog.Logger, state State, msg string, attrs ...slog.Attr) {
	if !logenabled(log, LevelTrace) {
		return
	}
	attrs = append(attrs, slog.String("id", tcb.id.String()), slog.String("state", state.String()))
	logattrs(log, LevelTrace, msg, attrs...)
}

func (tcb *TCB) logerr(log *slog.Logger, state State, msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("id", tcb.id.String()), slog.String("state", state.String()))
	logattrs(log, slog.LevelError, msg, attrs...)
}
