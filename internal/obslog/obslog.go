// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package obslog provides the transaction manager's structured logging,
// built on zap in the style the rest of the corpus uses for it (see
// talent-plan-tinykv's scheduler, which configures a *zap.Logger the same
// way). The manager uses it only to crash loudly — logging first — when it
// detects an invariant violation; it emits no lifecycle logs.
package obslog

import (
	"go.uber.org/zap"
)

// Logger wraps a *zap.Logger with the one extra behavior the manager
// needs: logging an invariant violation before panicking, so the failure
// is visible in structured logs even when the panic itself is captured by
// a recover higher up the stack.
type Logger struct {
	*zap.Logger
}

// New creates a production-configured Logger.
func New() *Logger {
	l, err := zap.NewProduction()
	if err != nil {
		// Fall back to a logger that cannot itself fail to construct.
		l = zap.NewNop()
	}
	return &Logger{Logger: l}
}

// Nop returns a Logger that discards everything, for tests that don't
// want log noise.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Invariant logs msg at error level with fields, then panics with msg.
// Callers use this for the assertion-class failures the specification
// calls out as fatal: start-time collisions and missing running-table
// entries.
func (l *Logger) Invariant(msg string, fields ...zap.Field) {
	l.Error(msg, fields...)
	panic(msg)
}
