// Package publish streams market events to kafka.
package publish

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"

	"clob/internal/bus"
	"clob/internal/schema"
)

const defaultBatchTimeout = 10 * time.Millisecond

// Config describes the kafka destination.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	// Async hands messages to the writer without waiting for acks.
	Async bool
}

// Validate checks if the config is usable.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("invalid kafka config: Brokers is empty")
	}
	if c.Topic == "" {
		return errors.New("invalid kafka config: Topic is empty")
	}
	return nil
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a bus sink that writes one kafka message per applied
// command. Messages are keyed by market id so a topic partition keeps the
// market's sequence order.
type Publisher struct {
	writer MessageWriter
	key    []byte
}

// NewPublisher builds a publisher on a kafka.Writer.
func NewPublisher(cfg Config, marketID string) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        cfg.Async,
		BatchTimeout: cfg.BatchTimeout,
	}, marketID), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter, marketID string) *Publisher {
	return &Publisher{writer: w, key: []byte(marketID)}
}

func (p *Publisher) Name() string { return "kafka" }

// Consume publishes the event envelope.
func (p *Publisher) Consume(ctx context.Context, e bus.Event) error {
	value, err := bus.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     p.key,
		Value:   value,
		Headers: headers(e.Header),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write kafka message, seq: %d", e.Header.Seq)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func headers(h schema.EventHeader) []kafka.Header {
	return []kafka.Header{
		{Key: "type", Value: []byte(h.Type.String())},
		{Key: "seq", Value: []byte(strconv.FormatUint(h.Seq, 10))},
		{Key: "version", Value: []byte(strconv.FormatUint(uint64(h.Version), 10))},
	}
}
