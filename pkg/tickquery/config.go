package tickquery

import (
	"fmt"
	"time"

	"github.com/bft-labs/tickquery/internal/adapters/kafka"
	"github.com/bft-labs/tickquery/internal/app"
	"github.com/bft-labs/tickquery/internal/domain"
)

// Transport selects how queries reach the endpoint.
type Transport string

const (
	// TransportMemory answers every query in-process with an ack responder.
	TransportMemory Transport = "memory"

	// TransportHTTP posts queries to ServiceURL over HTTP/2.
	TransportHTTP Transport = "http"

	// TransportKafka writes queries to a topic named after the endpoint.
	TransportKafka Transport = "kafka"
)

// DefaultSetupAttempts is how often session setup is tried before Start fails.
const DefaultSetupAttempts = 3

// Config holds the configuration of a Client.
type Config struct {
	// Endpoint is the logical name queries are addressed to.
	// Default: "message_endpoint"
	Endpoint string

	// Interval is the delay between the end of one query cycle and the
	// start of the next. Default: 1s
	Interval time.Duration

	// EntityPath and Body fill every outgoing message.
	// Defaults: "/" and "Hello, World! 🦀"
	EntityPath string
	Body       string

	// Count stops the client after that many cycles. Zero runs until stopped.
	Count int

	// QueryTimeout bounds one query and the draining of its replies.
	// Zero disables the bound.
	QueryTimeout time.Duration

	// Transport selects the session. Default: memory
	Transport Transport

	// ServiceURL is the base URL of the HTTP transport.
	ServiceURL string

	// Brokers, ReplyTopic and ReplyTimeout configure the Kafka transport.
	Brokers      []string
	ReplyTopic   string
	ReplyTimeout time.Duration

	// SetupAttempts bounds session setup retries. Default: 3
	SetupAttempts int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = app.DefaultEndpoint
	}
	if c.Interval == 0 {
		c.Interval = app.DefaultInterval
	}
	if c.EntityPath == "" {
		c.EntityPath = app.DefaultEntityPath
	}
	if c.Body == "" {
		c.Body = app.DefaultBody
	}
	if c.Transport == "" {
		c.Transport = TransportMemory
	}
	if c.ReplyTimeout == 0 {
		c.ReplyTimeout = kafka.DefaultReplyTimeout
	}
	if c.SetupAttempts == 0 {
		c.SetupAttempts = DefaultSetupAttempts
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", domain.ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", domain.ErrInvalidConfig)
	}
	if c.Count < 0 {
		return fmt.Errorf("%w: count must not be negative", domain.ErrInvalidConfig)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("%w: query timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.SetupAttempts < 0 {
		return fmt.Errorf("%w: setup attempts must not be negative", domain.ErrInvalidConfig)
	}

	switch c.Transport {
	case TransportMemory:
	case TransportHTTP:
		if c.ServiceURL == "" {
			return fmt.Errorf("%w: service url is required for the http transport", domain.ErrInvalidConfig)
		}
	case TransportKafka:
		if len(c.Brokers) == 0 {
			return fmt.Errorf("%w: brokers are required for the kafka transport", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownTransport, c.Transport)
	}
	return nil
}
