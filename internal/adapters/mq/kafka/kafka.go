// Package kafka reads CDC messages from a Kafka topic into the in-memory
// queue.
//
// Delivery is at-most-once: offsets are committed by the consumer group as
// messages are read, and a message that finds the queue full is dropped.
package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/okian/hotitems/internal/adapters/mq/queue"
	"github.com/okian/hotitems/pkg/logger"
	"github.com/okian/hotitems/pkg/metrics"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultRetryBackoff = time.Second
	minBytes            = 1
	maxBytes            = 10 << 20
)

// Reader is the part of *kafkago.Reader the source uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// Enqueuer accepts messages for the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, m queue.Message) error
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: minBytes,
		MaxBytes: maxBytes,
	})
}

// Source pumps messages from a Reader into a queue.
type Source struct {
	reader  Reader
	queue   Enqueuer
	backoff time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// NewSource returns a Source reading from r into q.
func NewSource(r Reader, q Enqueuer, opts ...Option) *Source {
	s := &Source{
		reader:  r,
		queue:   q,
		backoff: defaultRetryBackoff,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("kafka")
	}
	return s
}

// Run reads until ctx is done or the reader is closed. Read errors are
// logged and retried after the backoff.
func (s *Source) Run(ctx context.Context) error {
	s.logger.Info(ctx, "cdc consumer started")
	defer s.logger.Info(ctx, "cdc consumer stopped")

	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			metrics.RecordErrorByComponent("kafka", "read")
			s.logger.Warn(ctx, "read failed, retrying", logger.Error(err), logger.Duration("backoff", s.backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.backoff):
			}
			continue
		}
		s.forward(ctx, msg)
	}
}

func (s *Source) forward(ctx context.Context, msg kafkago.Message) { //nolint:gocritic // hugeParam: kafka-go returns messages by value
	m := queue.Message{
		Payload:    msg.Value,
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		ReceivedAt: s.now(),
	}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		s.logger.Warn(ctx, "cdc message dropped",
			logger.String("topic", msg.Topic),
			logger.Int("partition", msg.Partition),
			logger.Int64("offset", msg.Offset),
			logger.Error(err))
	}
}

// Close closes the underlying reader, which also ends Run.
func (s *Source) Close() error {
	return s.reader.Close()
}
