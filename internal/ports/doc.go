// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// query loop needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Codec]: Converts messages to and from bytes
//   - [Session]: An established transport connection that binds queriers
//   - [Querier]: Issues queries against one endpoint
//   - [ReplyStream]: The lazy sequence of replies for one query
//   - [Queryable]: The responder side, answering queries with replies
//   - [Clock]: Time source and timer for the tick schedule
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (protobuf, memory, HTTP/2, Kafka, zerolog).
package ports
