package tickquery

import (
	"go.opentelemetry.io/otel/metric"
)

// Option configures optional behavior of a Client.
type Option func(*options)

type options struct {
	logger        Logger
	eventHandler  EventHandler
	session       Session
	codec         Codec
	clock         Clock
	plugins       []Plugin
	meterProvider metric.MeterProvider
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for client events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithSession uses an existing session instead of opening one from the
// configured transport. The caller keeps ownership and closes it.
func WithSession(session Session) Option {
	return func(o *options) {
		o.session = session
	}
}

// WithCodec replaces the protobuf codec.
func WithCodec(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// WithClock replaces the system clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithPlugin registers a plugin to be initialized when the client starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}
