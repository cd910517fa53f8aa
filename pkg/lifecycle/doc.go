// Package lifecycle provides the state machine and retry helpers behind a
// tickquery client.
//
// A client moves through Stopped, Starting, Running, Stopping and Crashed.
// Start opens the transport session while Starting; the query loop runs
// while Running; Stop cancels the loop and waits for it with a timeout.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, eventEmitter)
//
//	if !manager.CanStart() {
//	    return lifecycle.ErrAlreadyRunning
//	}
//	if err := manager.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
//	    return err
//	}
//
//	// ... open the session with a Backoff, run the loop in a worker ...
//
//	if err := manager.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
package lifecycle
