package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// reader is the subset of *kafka.Reader used by reply streams and responders.
type reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// broker hides the kafka-go client so streams can be tested without a cluster.
type broker interface {
	// LastOffset returns the offset the next message on partition 0 of topic will get.
	LastOffset(ctx context.Context, topic string) (int64, error)
	// Write spreads requests over the partitions of their topic.
	Write(ctx context.Context, msgs ...kafka.Message) error
	// WriteReplies puts replies on partition 0, the only partition reply
	// streams read.
	WriteReplies(ctx context.Context, msgs ...kafka.Message) error
	// Reader reads partition 0 of topic starting at offset.
	Reader(topic string, offset int64) (reader, error)
	// Consumer reads topic as a member of group.
	Consumer(topic, group string) reader
	Close() error
}

type kafkaBroker struct {
	cfg     Config
	writer  *kafka.Writer
	replies *kafka.Writer
}

// firstPartition picks the lowest partition id, which is 0 on any topic.
var firstPartition = kafka.BalancerFunc(func(_ kafka.Message, partitions ...int) int {
	first := partitions[0]
	for _, p := range partitions[1:] {
		if p < first {
			first = p
		}
	}
	return first
})

func newKafkaBroker(cfg Config) *kafkaBroker {
	newWriter := func(balancer kafka.Balancer) *kafka.Writer {
		return &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               balancer,
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}
	return &kafkaBroker{
		cfg:     cfg,
		writer:  newWriter(&kafka.LeastBytes{}),
		replies: newWriter(firstPartition),
	}
}

// ping dials the brokers in order and succeeds on the first that answers.
func (b *kafkaBroker) ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range b.cfg.Brokers {
		conn, err := b.cfg.Dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no reachable broker in %v: %w", b.cfg.Brokers, lastErr)
}

func (b *kafkaBroker) LastOffset(ctx context.Context, topic string) (int64, error) {
	var lastErr error
	for _, addr := range b.cfg.Brokers {
		conn, err := b.cfg.Dialer.DialLeader(ctx, "tcp", addr, topic, 0)
		if err != nil {
			lastErr = err
			continue
		}
		offset, err := conn.ReadLastOffset()
		conn.Close()
		return offset, err
	}
	return 0, fmt.Errorf("dial leader for %s: %w", topic, lastErr)
}

func (b *kafkaBroker) Write(ctx context.Context, msgs ...kafka.Message) error {
	return b.writer.WriteMessages(ctx, msgs...)
}

func (b *kafkaBroker) WriteReplies(ctx context.Context, msgs ...kafka.Message) error {
	return b.replies.WriteMessages(ctx, msgs...)
}

func (b *kafkaBroker) Reader(topic string, offset int64) (reader, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   b.cfg.Brokers,
		Topic:     topic,
		Partition: 0,
		Dialer:    b.cfg.Dialer,
		MinBytes:  1,
		MaxBytes:  b.cfg.MaxBytes,
		MaxWait:   100 * time.Millisecond,
	})
	if err := r.SetOffset(offset); err != nil {
		r.Close()
		return nil, fmt.Errorf("seek %s to %d: %w", topic, offset, err)
	}
	return r, nil
}

func (b *kafkaBroker) Consumer(topic, group string) reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     group,
		Topic:       topic,
		Dialer:      b.cfg.Dialer,
		MinBytes:    1,
		MaxBytes:    b.cfg.MaxBytes,
		MaxWait:     100 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
}

func (b *kafkaBroker) Close() error {
	return errors.Join(b.writer.Close(), b.replies.Close())
}
