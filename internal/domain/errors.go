package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the tickquery domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("tickquery: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("tickquery: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("tickquery: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("tickquery: invalid configuration")

	// ErrUnknownTransport is returned when no session can be built for a transport name.
	ErrUnknownTransport = errors.New("tickquery: unknown transport")
)

// EncodeError is returned when the outgoing message of a tick cannot be encoded.
// The tick is skipped.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode message: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// QueryError is returned when the transport cannot issue the query of a tick.
// The tick is skipped; the next tick retries.
type QueryError struct {
	Endpoint string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Endpoint, e.Err)
}
func (e *QueryError) Unwrap() error { return e.Err }

// StreamError is returned when a reply stream fails before its natural end.
// Draining of that tick stops; replies already received were reported.
type StreamError struct {
	Endpoint string
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reply stream %s: %v", e.Endpoint, e.Err)
}
func (e *StreamError) Unwrap() error { return e.Err }

// DecodeError is reported when a successful reply does not decode as a Message.
// Draining continues with the next reply.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode reply %d: %v", e.Index, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// ApplicationError is reported for a reply the remote side marked as failed.
// Text is the remote diagnostic, or the reason it could not be read.
type ApplicationError struct {
	Index int
	Text  string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("reply %d: remote error: %s", e.Index, e.Text)
}

// SetupError is returned when the session or the endpoint binding cannot be
// established. The query loop never starts.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Stage, e.Err)
}
func (e *SetupError) Unwrap() error { return e.Err }
