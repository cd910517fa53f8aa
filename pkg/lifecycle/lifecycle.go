package lifecycle

import (
	"context"
	"time"
)

// State is the lifecycle state of a query client.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = [...]string{
	StateStopped:  "stopped",
	StateStarting: "starting",
	StateRunning:  "running",
	StateStopping: "stopping",
	StateCrashed:  "crashed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Idle reports whether a client in this state may be started.
func (s State) Idle() bool {
	return s == StateStopped || s == StateCrashed
}

// EventEmitter observes state changes. It is called with the manager lock
// released, in transition order.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager tracks a client's state and the goroutines it must wait for on
// shutdown.
type Manager interface {
	State() State
	CanStart() bool
	CanStop() bool

	// TransitionTo fails when newState is not reachable from the current state.
	TransitionTo(newState State, reason string) error
	TransitionFrom(from, newState State, reason string) error

	SetCancel(cancel context.CancelFunc)
	Cancel()

	AddWorker()
	WorkerDone()

	// WaitWithTimeout returns ErrShutdownTimeout if workers are still
	// running after timeout.
	WaitWithTimeout(timeout time.Duration) error
}
