// Package log provides the structured logging abstraction used by tickquery.
//
// Every outcome of a query cycle (decoded replies, encode and query errors,
// remote failures) is reported through a [Logger], so the logger is the
// client's diagnostic channel. Implementations are provided for zerolog and
// a no-op logger for tests.
//
// # Usage
//
//	logger := log.NewZerologAdapter()
//	logger.Info("received response", log.Uint64("tick", 3), log.Int("reply", 0))
//
// Or silence output entirely:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Implement the Logger interface to route reports elsewhere:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
