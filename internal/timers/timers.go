// Package timers provides the clock/timer service used by the production
// scheduler and the sale manager: one-shot and repeating callbacks that can be
// cancelled through a handle.
package timers

import (
	"errors"
	"time"
)

// ErrInvalidDuration is returned when a delay or interval is not positive.
var ErrInvalidDuration = errors.New("timer duration must be positive")

// Handle cancels a scheduled callback.
type Handle interface {
	// Stop prevents future runs. It reports whether this call did the
	// stopping; later calls are no-ops that return false. A callback that
	// is already executing is not interrupted.
	Stop() bool
}

// Service schedules callbacks. Callbacks may run on any goroutine.
type Service interface {
	// After runs fn once, d from now.
	After(d time.Duration, fn func()) (Handle, error)
	// Every runs fn every d, first at d from now.
	Every(d time.Duration, fn func()) (Handle, error)
}
