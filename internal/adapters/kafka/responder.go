package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

// DefaultResponderGroup is the consumer group responders join.
const DefaultResponderGroup = "tickquery-responder"

// Serve answers requests on the endpoint topic with queryable until ctx is
// canceled. Every reply is written to the request's reply topic; the last
// one carries the final marker.
func (s *Session) Serve(ctx context.Context, endpoint string, queryable ports.Queryable) error {
	if s.isClosed() {
		return ErrClosed
	}

	r := s.broker.Consumer(endpoint, DefaultResponderGroup)
	defer r.Close()

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read request: %w", err)
		}

		if err := s.answer(ctx, m, queryable); err != nil {
			s.logger.Warn("failed to answer request",
				ports.String("topic", endpoint),
				ports.Err(err),
			)
		}
	}
}

func (s *Session) answer(ctx context.Context, req kafka.Message, queryable ports.Queryable) error {
	id := header(req, HeaderCorrelationID)
	replyTo := header(req, HeaderReplyTo)
	if id == "" || replyTo == "" {
		return errors.New("request without correlation id or reply topic")
	}

	// Replies are held back by one so the last can be marked final.
	var pending *kafka.Message
	flush := func(final bool) error {
		if pending == nil {
			return nil
		}
		if final {
			pending.Headers = append(pending.Headers, kafka.Header{Key: HeaderFinal, Value: []byte("1")})
		}
		err := s.broker.WriteReplies(ctx, *pending)
		pending = nil
		return err
	}

	send := func(reply domain.Reply) error {
		if err := flush(false); err != nil {
			return err
		}
		msg := replyMessage(replyTo, id, reply)
		pending = &msg
		return nil
	}

	if err := queryable(ctx, req.Value, send); err != nil {
		if ferr := flush(false); ferr != nil {
			return ferr
		}
		msg := replyMessage(replyTo, id, domain.Failure([]byte(err.Error())))
		pending = &msg
	}

	if pending == nil {
		return s.broker.WriteReplies(ctx, kafka.Message{
			Topic: replyTo,
			Headers: []kafka.Header{
				{Key: HeaderCorrelationID, Value: []byte(id)},
				{Key: HeaderFinal, Value: []byte("1")},
			},
		})
	}
	return flush(true)
}

func replyMessage(topic, id string, reply domain.Reply) kafka.Message {
	status, value := StatusOK, reply.Payload()
	if !reply.IsSuccess() {
		status, value = StatusError, reply.ErrorPayload()
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(id),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderCorrelationID, Value: []byte(id)},
			{Key: HeaderStatus, Value: []byte(status)},
		},
	}
}
