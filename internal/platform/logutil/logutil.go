// Package logutil provides nil-safe *slog.Logger helpers so constructors
// can accept an optional logger without nil checks at every call site.
package logutil

import (
	"io"
	"log/slog"
)

// noop discards everything; created once and shared.
var noop = slog.New(slog.NewTextHandler(io.Discard, nil))

// Noop returns a logger that discards all output.
func Noop() *slog.Logger { return noop }

// NoopIfNil returns l when non-nil and a discard logger otherwise.
func NoopIfNil(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return noop
}
