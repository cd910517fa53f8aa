package ports

import (
	"context"

	"github.com/bft-labs/tickquery/internal/domain"
)

// Session is an established transport connection.
// It is opened once before the query loop starts.
type Session interface {
	// Querier binds a querier to the named logical endpoint.
	Querier(ctx context.Context, endpoint string) (Querier, error)

	// Close releases the connection and every querier bound to it.
	Close() error
}

// Querier issues queries against one fixed endpoint.
type Querier interface {
	// Endpoint returns the endpoint name the querier is bound to.
	Endpoint() string

	// Query sends payload and returns the stream of replies.
	// An error means the query was not issued.
	Query(ctx context.Context, payload []byte) (ReplyStream, error)

	// Close releases resources held by the querier.
	Close() error
}

// ReplyStream is the lazy, finite, non-restartable sequence of replies for
// one issued query.
type ReplyStream interface {
	// Next blocks until the next reply is available.
	// Returns io.EOF when no more replies will arrive; that is not a failure.
	// Any other error is terminal for the stream.
	Next(ctx context.Context) (domain.Reply, error)

	// Close releases the stream. Safe to call after Next returned io.EOF.
	Close() error
}

// Queryable answers one query by calling reply zero or more times.
// reply returns an error once the querier stopped listening.
// A non-nil return value is delivered to the querier as a final failure reply.
type Queryable func(ctx context.Context, payload []byte, reply func(domain.Reply) error) error
