package tickquery

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bft-labs/tickquery/internal/domain"
)

const instrumentationName = "github.com/bft-labs/tickquery"

const (
	outcomeDecoded     = "decoded"
	outcomeDecodeError = "decode_error"
	outcomeAppError    = "app_error"
)

type metrics struct {
	queries    metric.Int64Counter
	tickErrors metric.Int64Counter
	replies    metric.Int64Counter
	duration   metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	queries, err := meter.Int64Counter("tickquery.queries",
		metric.WithDescription("Queries issued"))
	if err != nil {
		return nil, err
	}
	tickErrors, err := meter.Int64Counter("tickquery.tick_errors",
		metric.WithDescription("Query cycles that failed before draining completed"))
	if err != nil {
		return nil, err
	}
	replies, err := meter.Int64Counter("tickquery.replies",
		metric.WithDescription("Replies received, by outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("tickquery.cycle.duration",
		metric.WithDescription("Duration of a query cycle"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		queries:    queries,
		tickErrors: tickErrors,
		replies:    replies,
		duration:   duration,
	}, nil
}

func (m *metrics) query() {
	m.queries.Add(context.Background(), 1)
}

func (m *metrics) tickError(err error) {
	m.tickErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", tickErrorKind(err))))
}

func (m *metrics) reply(outcome string) {
	m.replies.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) replyError(err error) {
	var appErr *domain.ApplicationError
	if errors.As(err, &appErr) {
		m.reply(outcomeAppError)
		return
	}
	m.reply(outcomeDecodeError)
}

func (m *metrics) cycle(d time.Duration) {
	m.duration.Record(context.Background(), d.Seconds())
}

func tickErrorKind(err error) string {
	var (
		encErr    *domain.EncodeError
		queryErr  *domain.QueryError
		streamErr *domain.StreamError
	)
	switch {
	case errors.As(err, &encErr):
		return "encode"
	case errors.As(err, &queryErr):
		return "query"
	case errors.As(err, &streamErr):
		return "stream"
	default:
		return "other"
	}
}
