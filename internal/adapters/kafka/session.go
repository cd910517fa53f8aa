// Package kafka implements the query transport over Kafka topics.
//
// A query is written to the topic named after the endpoint, tagged with a
// correlation id and the topic replies must go to. The responder writes its
// replies to that topic with the same correlation id, a status header and a
// final marker on the last one.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/bft-labs/tickquery/internal/ports"
)

// Header keys carried on requests and replies.
const (
	HeaderCorrelationID = "tq-correlation-id"
	HeaderReplyTo       = "tq-reply-to"
	HeaderStatus        = "tq-status"
	HeaderFinal         = "tq-final"

	StatusOK    = "ok"
	StatusError = "err"
)

// Defaults for Config.
const (
	DefaultReplyTimeout = 2 * time.Second
	DefaultBatchTimeout = 10 * time.Millisecond
	DefaultMaxBytes     = 1 << 20
	ReplyTopicSuffix    = ".replies"
)

// DefaultBrokers is used when Config.Brokers is empty.
var DefaultBrokers = []string{"localhost:9092"}

// ErrClosed is returned when querying through a closed session.
var ErrClosed = errors.New("kafka: session closed")

// Config configures a Kafka session.
type Config struct {
	// Brokers are the bootstrap addresses of the cluster.
	Brokers []string

	// ReplyTopic overrides the reply topic. Empty uses {endpoint}.replies.
	ReplyTopic string

	// ReplyTimeout is how long a stream waits for the next reply before
	// it ends.
	ReplyTimeout time.Duration

	// BatchTimeout bounds how long the writer buffers a request.
	BatchTimeout time.Duration

	// MaxBytes caps a fetch from the reply topic.
	MaxBytes int

	// Dialer is optional; nil uses kafka.DefaultDialer.
	Dialer *kafka.Dialer
}

func (c *Config) applyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = DefaultBrokers
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = DefaultReplyTimeout
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.Dialer == nil {
		c.Dialer = kafka.DefaultDialer
	}
}

// Session implements ports.Session on a Kafka cluster.
type Session struct {
	cfg    Config
	broker broker
	logger ports.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession connects to the cluster. It fails if no broker answers.
func NewSession(ctx context.Context, cfg Config, logger ports.Logger) (*Session, error) {
	cfg.applyDefaults()

	b := newKafkaBroker(cfg)
	if err := b.ping(ctx); err != nil {
		b.Close()
		return nil, err
	}

	return newSession(cfg, b, logger), nil
}

func newSession(cfg Config, b broker, logger ports.Logger) *Session {
	cfg.applyDefaults()
	return &Session{cfg: cfg, broker: b, logger: logger}
}

// Querier binds a querier to endpoint.
func (s *Session) Querier(_ context.Context, endpoint string) (ports.Querier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("kafka: endpoint is required")
	}
	if s.isClosed() {
		return nil, ErrClosed
	}

	replyTopic := s.cfg.ReplyTopic
	if replyTopic == "" {
		replyTopic = endpoint + ReplyTopicSuffix
	}

	return &querier{session: s, endpoint: endpoint, replyTopic: replyTopic}, nil
}

// Close flushes and closes the writer.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.broker.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type querier struct {
	session    *Session
	endpoint   string
	replyTopic string
}

func (q *querier) Endpoint() string { return q.endpoint }

func (q *querier) Close() error { return nil }

// Query writes the request and returns a stream over the replies to it.
// The reply offset is taken before the write so no reply can be missed.
func (q *querier) Query(ctx context.Context, payload []byte) (ports.ReplyStream, error) {
	s := q.session
	if s.isClosed() {
		return nil, ErrClosed
	}

	offset, err := s.broker.LastOffset(ctx, q.replyTopic)
	if err != nil {
		return nil, fmt.Errorf("read reply offset: %w", err)
	}

	r, err := s.broker.Reader(q.replyTopic, offset)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	err = s.broker.Write(ctx, kafka.Message{
		Topic: q.endpoint,
		Key:   []byte(id),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderCorrelationID, Value: []byte(id)},
			{Key: HeaderReplyTo, Value: []byte(q.replyTopic)},
		},
	})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("write request: %w", err)
	}

	s.logger.Debug("request written",
		ports.String("topic", q.endpoint),
		ports.String("reply_topic", q.replyTopic),
		ports.String("correlation_id", id),
	)

	return &stream{
		reader:        r,
		correlationID: id,
		timeout:       s.cfg.ReplyTimeout,
	}, nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
