package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// Defaults for the driver loop.
const (
	DefaultInterval   = time.Second
	DefaultEndpoint   = "message_endpoint"
	DefaultEntityPath = domain.RootEntityPath
	DefaultBody       = "Hello, World! 🦀"
)

// DriverConfig contains configuration for the query loop.
type DriverConfig struct {
	// Interval is the delay between the end of one tick and the start of the next.
	Interval time.Duration

	// Endpoint is the name the querier is bound to. Used for reporting only.
	Endpoint string

	// EntityPath and Body fill the message built on every tick.
	EntityPath string
	Body       string

	// QueryTimeout bounds query issuance plus draining of one tick. Zero disables it.
	QueryTimeout time.Duration

	// Count stops the loop after that many ticks. Zero runs until canceled.
	Count int
}

// EventEmitter receives the outcome of every step of a query cycle.
// Calls are made synchronously from the driver goroutine.
type EventEmitter interface {
	OnQuery(seq uint64, payloadBytes int)
	OnTickError(seq uint64, err error)
	OnReply(seq uint64, index int, msg domain.Message)
	OnReplyError(seq uint64, index int, err error)
	OnCycleComplete(result TickResult)
}

// TickResult summarizes one query cycle.
type TickResult struct {
	Seq               uint64
	Replies           int
	Decoded           int
	DecodeErrors      int
	ApplicationErrors int
	Duration          time.Duration

	// Err is the tick-level error: *domain.EncodeError, *domain.QueryError or
	// *domain.StreamError. Nil when the stream was drained to its end.
	Err error
}

// Driver runs the tick -> build -> encode -> query -> drain loop.
type Driver struct {
	config   DriverConfig
	interval atomic.Int64
	querier  ports.Querier
	codec    ports.Codec
	clock    ports.Clock
	logger   ports.Logger
	emitter  EventEmitter
}

// NewDriver creates a driver. A nil clock uses the system clock; a nil
// emitter disables events.
func NewDriver(
	config DriverConfig,
	querier ports.Querier,
	codec ports.Codec,
	clock ports.Clock,
	logger ports.Logger,
	emitter EventEmitter,
) *Driver {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Endpoint == "" {
		config.Endpoint = querier.Endpoint()
	}
	if clock == nil {
		clock = SystemClock{}
	}

	d := &Driver{
		config:  config,
		querier: querier,
		codec:   codec,
		clock:   clock,
		logger:  logger,
		emitter: emitter,
	}
	d.interval.Store(int64(config.Interval))
	return d
}

// Interval returns the current delay between ticks.
func (d *Driver) Interval() time.Duration {
	return time.Duration(d.interval.Load())
}

// SetInterval changes the delay used from the next wait on.
// Non-positive values are ignored.
func (d *Driver) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	d.interval.Store(int64(interval))
}

// Run executes the query loop. The first tick fires immediately; each
// following tick fires one interval after the previous one finished draining.
// Returns ctx.Err() when canceled, or nil once Count ticks have run.
func (d *Driver) Run(ctx context.Context) error {
	for seq := uint64(1); ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		d.Tick(ctx, seq)

		if d.config.Count > 0 && seq >= uint64(d.config.Count) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(d.Interval()):
		}
	}
}

// Tick runs one query cycle and reports every outcome.
func (d *Driver) Tick(ctx context.Context, seq uint64) TickResult {
	start := d.clock.Now()
	result := TickResult{Seq: seq}
	defer func() {
		result.Duration = d.clock.Now().Sub(start)
		if d.emitter != nil {
			d.emitter.OnCycleComplete(result)
		}
	}()

	msg := domain.NewMessage(start, d.config.EntityPath, d.config.Body)

	payload, err := d.codec.Encode(msg)
	if err != nil {
		result.Err = &domain.EncodeError{Err: err}
		d.tickError(seq, "encode error", result.Err)
		return result
	}

	// Errors caused by canceling the caller's ctx end the tick silently; a
	// QueryTimeout expiry is reported.
	parent := ctx
	if d.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.QueryTimeout)
		defer cancel()
	}

	stream, err := d.querier.Query(ctx, payload)
	if err != nil {
		if parent.Err() != nil {
			return result
		}
		result.Err = &domain.QueryError{Endpoint: d.config.Endpoint, Err: err}
		d.tickError(seq, "query error", result.Err)
		return result
	}
	defer stream.Close()

	d.logger.Debug("query issued",
		ports.Uint64("tick", seq),
		ports.String("endpoint", d.config.Endpoint),
		ports.Int("bytes", len(payload)),
	)
	if d.emitter != nil {
		d.emitter.OnQuery(seq, len(payload))
	}

	for index := 0; ; index++ {
		reply, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return result
		}
		if err != nil {
			if parent.Err() != nil {
				return result
			}
			result.Err = &domain.StreamError{Endpoint: d.config.Endpoint, Err: err}
			d.tickError(seq, "reply stream aborted", result.Err)
			return result
		}

		result.Replies++
		d.handleReply(seq, index, reply, &result)
	}
}

func (d *Driver) handleReply(seq uint64, index int, reply domain.Reply, result *TickResult) {
	if reply.IsSuccess() {
		msg, err := d.codec.Decode(reply.Payload())
		if err != nil {
			result.DecodeErrors++
			d.replyError(seq, index, "decode error", &domain.DecodeError{Index: index, Err: err})
			return
		}

		result.Decoded++
		d.logger.Info("received response",
			ports.Uint64("tick", seq),
			ports.Int("reply", index),
			ports.String("entity_path", msg.Header.EntityPath),
			ports.Uint64("reference_id", msg.Header.ReferenceID),
			ports.Any("timestamp", msg.Header.Timestamp),
			ports.String("body", msg.Body),
		)
		if d.emitter != nil {
			d.emitter.OnReply(seq, index, msg)
		}
		return
	}

	text, err := reply.ErrorText()
	if err != nil {
		text = err.Error()
	}
	result.ApplicationErrors++
	d.replyError(seq, index, "received error", &domain.ApplicationError{Index: index, Text: text})
}

func (d *Driver) tickError(seq uint64, msg string, err error) {
	d.logger.Error(msg,
		ports.Uint64("tick", seq),
		ports.String("endpoint", d.config.Endpoint),
		ports.Err(err),
	)
	if d.emitter != nil {
		d.emitter.OnTickError(seq, err)
	}
}

func (d *Driver) replyError(seq uint64, index int, msg string, err error) {
	d.logger.Error(msg,
		ports.Uint64("tick", seq),
		ports.Int("reply", index),
		ports.Err(err),
	)
	if d.emitter != nil {
		d.emitter.OnReplyError(seq, index, err)
	}
}
