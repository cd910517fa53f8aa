package tickquery

import (
	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
	"github.com/bft-labs/tickquery/pkg/lifecycle"
	"github.com/bft-labs/tickquery/pkg/log"
)

// Re-exported so embedders never import internal packages.
type (
	Message = domain.Message
	Header  = domain.Header
	Reply   = domain.Reply

	Session     = ports.Session
	Querier     = ports.Querier
	ReplyStream = ports.ReplyStream
	Queryable   = ports.Queryable
	Codec       = ports.Codec
	Clock       = ports.Clock

	Logger = log.Logger
	Field  = log.Field

	State = lifecycle.State
)

// Error types, usable with errors.As.
type (
	EncodeError      = domain.EncodeError
	QueryError       = domain.QueryError
	StreamError      = domain.StreamError
	DecodeError      = domain.DecodeError
	ApplicationError = domain.ApplicationError
	SetupError       = domain.SetupError
)

// Sentinel errors, usable with errors.Is.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrUnknownTransport = domain.ErrUnknownTransport
)

// Lifecycle states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)
