// Package domain contains the core domain entities and value objects for tickquery.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (transports, codecs, logging) and
// contains only the values exchanged by one query cycle.
//
// # Entities
//
//   - [Message]: The structured payload sent on every tick (header + body)
//   - [Header]: Creation timestamp, correlation id and entity path
//   - [Reply]: One streamed answer to a query, either a success or a failure
//
// # Errors
//
// Each boundary of a query cycle has its own error type so callers can tell a
// skipped tick ([EncodeError], [QueryError], [StreamError]) from a skipped
// reply ([DecodeError], [ApplicationError]). [SetupError] is the only error
// that stops the client before the loop begins.
package domain
