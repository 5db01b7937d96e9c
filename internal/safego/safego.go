// Package safego provides a panic-recovering goroutine launcher for background
// work: the facet cache warmer, audit shipping, and other fire-and-forget jobs
// where an unrecovered panic would silently kill the goroutine forever.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go launches fn in a new goroutine. If fn panics, the panic is recovered and
// logged with a stack trace rather than crashing the process.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
