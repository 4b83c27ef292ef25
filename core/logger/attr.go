// Package logger provides nil-safe slog.Attr helpers; the dispatch
// layer's loops use them for their log lines. The empty-Attr pattern lets call
// sites write log.Info("msg", logger.Error(err)) without a nil check.
package logger

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/asynchttp/core/exec"
)

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component creates an attribute for the logging component name.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// ExecContext creates an attribute describing an execution context.
func ExecContext(c exec.Context) slog.Attr {
	return slog.String("exec_context", c.String())
}

// LoopID creates an attribute for a dispatch loop id.
func LoopID(id uint64) slog.Attr {
	return slog.Uint64("loop_id", id)
}

// Kind creates an attribute for the error taxonomy kind.
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// ExchangeID creates an attribute for an HTTP exchange id.
func ExchangeID(id string) slog.Attr {
	return slog.String("exchange_id", id)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
