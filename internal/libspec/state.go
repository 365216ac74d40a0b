// SPDX-License-Identifier: MPL-2.0

package libspec

import "errors"

const (
	// StateCreated indicates the manager was created but Start() not called.
	StateCreated State = iota
	// StateStarting indicates Start() is running the initial scan.
	StateStarting
	// StateRunning indicates the watcher is active.
	StateRunning
	// StateStopping indicates Stop() was called and goroutines are draining.
	StateStopping
	// StateStopped is terminal: the manager has stopped.
	StateStopped
	// StateFailed is terminal: the manager failed to start.
	StateFailed
)

// ErrNotStartable is returned by Start on a manager that is not freshly
// created, or that was stopped before its start completed.
var ErrNotStartable = errors.New("manager cannot be started")

// State represents the lifecycle state of a Manager.
type State int32

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
