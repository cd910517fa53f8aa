package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/tickquery/internal/adapters/memory"
	"github.com/bft-labs/tickquery/internal/adapters/protobuf"
	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
	"github.com/bft-labs/tickquery/pkg/log"
)

// fakeBroker keeps topics in memory. Write spreads messages round-robin over
// partitions like a balancer would; WriteReplies always uses partition 0.
type fakeBroker struct {
	mu         sync.Mutex
	topics     map[string][]kafka.Message
	partitions int
	next       int
	changed    chan struct{}
	writeErr   error
	closed     bool

	// onWrite runs after each write, outside the lock.
	onWrite func(kafka.Message)
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{topics: map[string][]kafka.Message{}, partitions: 1, changed: make(chan struct{})}
}

// partitionLocked returns the messages of one partition, or all of them for -1.
func (b *fakeBroker) partitionLocked(topic string, partition int) []kafka.Message {
	if partition < 0 {
		return b.topics[topic]
	}
	var out []kafka.Message
	for _, m := range b.topics[topic] {
		if m.Partition == partition {
			out = append(out, m)
		}
	}
	return out
}

func (b *fakeBroker) LastOffset(_ context.Context, topic string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.partitionLocked(topic, 0))), nil
}

func (b *fakeBroker) Write(ctx context.Context, msgs ...kafka.Message) error {
	return b.write(false, msgs)
}

func (b *fakeBroker) WriteReplies(ctx context.Context, msgs ...kafka.Message) error {
	return b.write(true, msgs)
}

func (b *fakeBroker) write(pinned bool, msgs []kafka.Message) error {
	b.mu.Lock()
	if b.writeErr != nil {
		b.mu.Unlock()
		return b.writeErr
	}
	for _, m := range msgs {
		m.Partition = 0
		if !pinned {
			m.Partition = b.next % b.partitions
			b.next++
		}
		m.Offset = int64(len(b.partitionLocked(m.Topic, m.Partition)))
		b.topics[m.Topic] = append(b.topics[m.Topic], m)
	}
	close(b.changed)
	b.changed = make(chan struct{})
	hook := b.onWrite
	b.mu.Unlock()

	if hook != nil {
		for _, m := range msgs {
			hook(m)
		}
	}
	return nil
}

func (b *fakeBroker) Reader(topic string, offset int64) (reader, error) {
	return &fakeReader{broker: b, topic: topic, partition: 0, offset: offset}, nil
}

func (b *fakeBroker) Consumer(topic, _ string) reader {
	return &fakeReader{broker: b, topic: topic, partition: -1}
}

func (b *fakeBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBroker) Messages(topic string) []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]kafka.Message(nil), b.topics[topic]...)
}

type fakeReader struct {
	broker    *fakeBroker
	topic     string
	partition int
	offset    int64
	closed    bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.broker.mu.Lock()
		msgs := r.broker.partitionLocked(r.topic, r.partition)
		changed := r.broker.changed
		if r.offset < int64(len(msgs)) {
			m := msgs[r.offset]
			r.offset++
			r.broker.mu.Unlock()
			return m, nil
		}
		r.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-changed:
		}
	}
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func reply(topic, id, status string, final bool, value string) kafka.Message {
	m := kafka.Message{
		Topic: topic,
		Value: []byte(value),
		Headers: []kafka.Header{
			{Key: HeaderCorrelationID, Value: []byte(id)},
		},
	}
	if status != "" {
		m.Headers = append(m.Headers, kafka.Header{Key: HeaderStatus, Value: []byte(status)})
	}
	if final {
		m.Headers = append(m.Headers, kafka.Header{Key: HeaderFinal, Value: []byte("1")})
	}
	return m
}

func drain(t *testing.T, s ports.ReplyStream) ([]domain.Reply, error) {
	t.Helper()
	defer s.Close()

	var out []domain.Reply
	for {
		r, err := s.Next(t.Context())
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}

func newTestQuerier(t *testing.T, b *fakeBroker, cfg Config) ports.Querier {
	t.Helper()
	s := newSession(cfg, b, log.NewNoopLogger())
	q, err := s.Querier(t.Context(), "message_endpoint")
	require.NoError(t, err)
	return q
}

func TestQuerier_WritesRequest(t *testing.T) {
	b := newFakeBroker()
	q := newTestQuerier(t, b, Config{ReplyTimeout: 10 * time.Millisecond})

	stream, err := q.Query(t.Context(), []byte("payload"))
	require.NoError(t, err)
	replies, err := drain(t, stream)
	require.NoError(t, err)
	assert.Empty(t, replies, "no responder means an empty stream")

	reqs := b.Messages("message_endpoint")
	require.Len(t, reqs, 1)
	assert.Equal(t, []byte("payload"), reqs[0].Value)
	assert.Equal(t, "message_endpoint.replies", header(reqs[0], HeaderReplyTo))
	assert.Len(t, header(reqs[0], HeaderCorrelationID), 36)
}

func TestQuerier_FiltersByCorrelationID(t *testing.T) {
	b := newFakeBroker()
	b.onWrite = func(m kafka.Message) {
		if m.Topic != "message_endpoint" {
			return
		}
		id := header(m, HeaderCorrelationID)
		to := header(m, HeaderReplyTo)
		_ = b.Write(context.Background(),
			reply(to, "someone-else", StatusOK, false, "stray"),
			reply(to, id, StatusOK, false, "a"),
			reply(to, id, StatusError, false, "b"),
			reply(to, id, StatusOK, true, "c"),
			reply(to, id, StatusOK, false, "after final"),
		)
	}
	q := newTestQuerier(t, b, Config{})

	stream, err := q.Query(t.Context(), nil)
	require.NoError(t, err)
	replies, err := drain(t, stream)
	require.NoError(t, err)

	require.Len(t, replies, 3)
	assert.Equal(t, []byte("a"), replies[0].Payload())
	assert.Equal(t, []byte("b"), replies[1].ErrorPayload())
	assert.Equal(t, []byte("c"), replies[2].Payload())
}

func TestQuerier_IgnoresOlderReplies(t *testing.T) {
	b := newFakeBroker()
	require.NoError(t, b.Write(t.Context(), reply("message_endpoint.replies", "old", StatusOK, true, "old")))
	q := newTestQuerier(t, b, Config{ReplyTimeout: 10 * time.Millisecond})

	stream, err := q.Query(t.Context(), nil)
	require.NoError(t, err)
	replies, err := drain(t, stream)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestQuerier_UnknownStatusIsStreamError(t *testing.T) {
	b := newFakeBroker()
	b.onWrite = func(m kafka.Message) {
		if m.Topic == "message_endpoint" {
			_ = b.Write(context.Background(), reply(header(m, HeaderReplyTo), header(m, HeaderCorrelationID), "maybe", true, ""))
		}
	}
	q := newTestQuerier(t, b, Config{})

	stream, err := q.Query(t.Context(), nil)
	require.NoError(t, err)
	_, err = drain(t, stream)
	assert.ErrorContains(t, err, `unknown status "maybe"`)
}

func TestQuerier_WriteError(t *testing.T) {
	b := newFakeBroker()
	b.writeErr = errors.New("leader not available")
	q := newTestQuerier(t, b, Config{})

	_, err := q.Query(t.Context(), nil)
	assert.ErrorContains(t, err, "write request: leader not available")
}

func TestQuerier_CancelDuringRead(t *testing.T) {
	b := newFakeBroker()
	q := newTestQuerier(t, b, Config{ReplyTimeout: time.Minute})

	ctx, cancel := context.WithCancel(t.Context())
	stream, err := q.Query(ctx, nil)
	require.NoError(t, err)
	defer stream.Close()

	time.AfterFunc(10*time.Millisecond, cancel)
	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_Closed(t *testing.T) {
	b := newFakeBroker()
	s := newSession(Config{}, b, log.NewNoopLogger())
	q, err := s.Querier(t.Context(), "ep")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, b.closed)

	_, err = q.Query(t.Context(), nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Querier(t.Context(), "ep")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_ReplyTopicOverride(t *testing.T) {
	s := newSession(Config{ReplyTopic: "shared.replies"}, newFakeBroker(), log.NewNoopLogger())
	q, err := s.Querier(t.Context(), "ep")
	require.NoError(t, err)
	assert.Equal(t, "shared.replies", q.(*querier).replyTopic)
}

func TestServe_AnswersQueries(t *testing.T) {
	codec := protobuf.NewCodec()
	b := newFakeBroker()
	s := newSession(Config{}, b, log.NewNoopLogger())

	ctx, cancel := context.WithCancel(t.Context())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, "message_endpoint", memory.AckResponder(codec, "ack")) }()

	q, err := s.Querier(t.Context(), "message_endpoint")
	require.NoError(t, err)

	payload, err := codec.Encode(domain.NewMessage(time.Now(), "/", "Hello"))
	require.NoError(t, err)

	stream, err := q.Query(t.Context(), payload)
	require.NoError(t, err)
	replies, err := drain(t, stream)
	require.NoError(t, err)

	require.Len(t, replies, 1)
	msg, err := codec.Decode(replies[0].Payload())
	require.NoError(t, err)
	assert.Equal(t, "ack", msg.Body)

	cancel()
	assert.ErrorIs(t, <-served, context.Canceled)
}

func TestAnswer_QueryableErrorAndEmpty(t *testing.T) {
	b := newFakeBroker()
	s := newSession(Config{}, b, log.NewNoopLogger())
	req := kafka.Message{Headers: []kafka.Header{
		{Key: HeaderCorrelationID, Value: []byte("id-1")},
		{Key: HeaderReplyTo, Value: []byte("r")},
	}}

	failing := func(ctx context.Context, payload []byte, send func(domain.Reply) error) error {
		if err := send(domain.Success([]byte("partial"))); err != nil {
			return err
		}
		return errors.New("gave up")
	}
	require.NoError(t, s.answer(t.Context(), req, failing))

	silent := func(ctx context.Context, payload []byte, send func(domain.Reply) error) error { return nil }
	require.NoError(t, s.answer(t.Context(), req, silent))

	msgs := b.Messages("r")
	require.Len(t, msgs, 3)
	assert.Equal(t, StatusOK, header(msgs[0], HeaderStatus))
	assert.Empty(t, header(msgs[0], HeaderFinal))
	assert.Equal(t, StatusError, header(msgs[1], HeaderStatus))
	assert.Equal(t, "gave up", string(msgs[1].Value))
	assert.Equal(t, "1", header(msgs[1], HeaderFinal))
	assert.Empty(t, header(msgs[2], HeaderStatus))
	assert.Equal(t, "1", header(msgs[2], HeaderFinal))

	assert.Error(t, s.answer(t.Context(), kafka.Message{}, silent))
}

func TestServe_RepliesOnMultiPartitionTopic(t *testing.T) {
	b := newFakeBroker()
	b.partitions = 2
	s := newSession(Config{}, b, log.NewNoopLogger())

	twice := func(ctx context.Context, payload []byte, send func(domain.Reply) error) error {
		if err := send(domain.Success([]byte("one"))); err != nil {
			return err
		}
		return send(domain.Success([]byte("two")))
	}

	ctx, cancel := context.WithCancel(t.Context())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, "message_endpoint", twice) }()

	q, err := s.Querier(t.Context(), "message_endpoint")
	require.NoError(t, err)

	for range 2 {
		stream, err := q.Query(t.Context(), nil)
		require.NoError(t, err)
		replies, err := drain(t, stream)
		require.NoError(t, err)

		require.Len(t, replies, 2)
		assert.Equal(t, []byte("one"), replies[0].Payload())
		assert.Equal(t, []byte("two"), replies[1].Payload())
	}

	for _, m := range b.Messages("message_endpoint.replies") {
		assert.Zero(t, m.Partition)
	}
	partitions := map[int]bool{}
	for _, m := range b.Messages("message_endpoint") {
		partitions[m.Partition] = true
	}
	assert.Len(t, partitions, 2, "requests spread over both partitions")

	cancel()
	assert.ErrorIs(t, <-served, context.Canceled)
}

func TestFirstPartition(t *testing.T) {
	assert.Equal(t, 0, firstPartition.Balance(kafka.Message{}, 2, 0, 1))
	assert.Equal(t, 3, firstPartition.Balance(kafka.Message{}, 3))
}
