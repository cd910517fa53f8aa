package tickquery

import (
	"time"

	"github.com/bft-labs/tickquery/internal/app"
	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/pkg/lifecycle"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// QueryEvent is emitted when a query has been issued.
type QueryEvent struct {
	Seq   uint64
	Bytes int
}

// TickErrorEvent is emitted when a cycle fails before or while draining:
// Err is a *EncodeError, *QueryError or *StreamError.
type TickErrorEvent struct {
	Seq uint64
	Err error
}

// ReplyEvent is emitted for every successfully decoded reply.
type ReplyEvent struct {
	Seq     uint64
	Index   int
	Message Message
}

// ReplyErrorEvent is emitted for every reply that carried an application
// error or could not be decoded: Err is a *ApplicationError or *DecodeError.
type ReplyErrorEvent struct {
	Seq   uint64
	Index int
	Err   error
}

// CycleEvent summarizes one query cycle.
type CycleEvent struct {
	Seq               uint64
	Replies           int
	Decoded           int
	DecodeErrors      int
	ApplicationErrors int
	Duration          time.Duration
	Err               error
}

// EventHandler receives client events.
// Methods are called synchronously from the query goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnQuery(QueryEvent)
	OnTickError(TickErrorEvent)
	OnReply(ReplyEvent)
	OnReplyError(ReplyErrorEvent)
	OnCycle(CycleEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnQuery(QueryEvent)             {}
func (BaseEventHandler) OnTickError(TickErrorEvent)     {}
func (BaseEventHandler) OnReply(ReplyEvent)             {}
func (BaseEventHandler) OnReplyError(ReplyErrorEvent)   {}
func (BaseEventHandler) OnCycle(CycleEvent)             {}

// eventEmitter fans driver and lifecycle callbacks out to the handler and metrics.
type eventEmitter struct {
	handler EventHandler
	metrics *metrics
}

var (
	_ app.EventEmitter       = (*eventEmitter)(nil)
	_ lifecycle.EventEmitter = (*eventEmitter)(nil)
)

func (e *eventEmitter) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler != nil {
		e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
	}
}

func (e *eventEmitter) OnQuery(seq uint64, payloadBytes int) {
	e.metrics.query()
	if e.handler != nil {
		e.handler.OnQuery(QueryEvent{Seq: seq, Bytes: payloadBytes})
	}
}

func (e *eventEmitter) OnTickError(seq uint64, err error) {
	e.metrics.tickError(err)
	if e.handler != nil {
		e.handler.OnTickError(TickErrorEvent{Seq: seq, Err: err})
	}
}

func (e *eventEmitter) OnReply(seq uint64, index int, msg domain.Message) {
	e.metrics.reply(outcomeDecoded)
	if e.handler != nil {
		e.handler.OnReply(ReplyEvent{Seq: seq, Index: index, Message: msg})
	}
}

func (e *eventEmitter) OnReplyError(seq uint64, index int, err error) {
	e.metrics.replyError(err)
	if e.handler != nil {
		e.handler.OnReplyError(ReplyErrorEvent{Seq: seq, Index: index, Err: err})
	}
}

func (e *eventEmitter) OnCycleComplete(r app.TickResult) {
	e.metrics.cycle(r.Duration)
	if e.handler != nil {
		e.handler.OnCycle(CycleEvent{
			Seq:               r.Seq,
			Replies:           r.Replies,
			Decoded:           r.Decoded,
			DecodeErrors:      r.DecodeErrors,
			ApplicationErrors: r.ApplicationErrors,
			Duration:          r.Duration,
			Err:               r.Err,
		})
	}
}
