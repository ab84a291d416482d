package gcode

import "github.com/rs/zerolog"

// Logger is the injected diagnostic capability the rewriter requires
// (spec.md §6/§9: "Global logger singleton... should be replaced by an
// injected logger interface"). Two severities are enough for every
// diagnostic this package emits: Info for job-level and geometry
// decisions worth a human's attention, Debug for per-line detail.
type Logger interface {
	Info(msg string)
	Debug(msg string)
}

// ZerologLogger adapts a zerolog.Logger to the gcode.Logger interface.
type ZerologLogger struct {
	L zerolog.Logger
}

// NewZerologLogger wraps l as a gcode.Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return ZerologLogger{L: l}
}

func (z ZerologLogger) Info(msg string)  { z.L.Info().Msg(msg) }
func (z ZerologLogger) Debug(msg string) { z.L.Debug().Msg(msg) }

// noopLogger discards every message; used by tests that don't care about
// diagnostics. "Absence of a logger is a programming error" (§6) — this
// is an explicit, named no-op, not an absence.
type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Info(string)  {}
func (noopLogger) Debug(string) {}
