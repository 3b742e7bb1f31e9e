package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"furniture-orders/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	// HeaderEventType carries the event type so consumers can route without decoding the body
	HeaderEventType = "event_type"
	// HeaderTraceID carries the trace id of the request that caused the event
	HeaderTraceID = "trace_id"

	maxHandleAttempts = 3
)

// Producer writes order events to a single topic
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer. Messages are hashed by key, so
// every event of one order lands on the same partition.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer, logger: util.GetLogger()}
}

// PublishEvent encodes event and writes it under key
func (p *Producer) PublishEvent(ctx context.Context, key, eventType string, event interface{}) error {
	msg, err := newMessage(ctx, key, eventType, event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		return fmt.Errorf("failed to write %s to kafka: %w", eventType, err)
	}

	util.EventsPublishedTotal.WithLabelValues(eventType).Inc()
	p.logger.Debug("Published event", zap.String("key", key), zap.String("type", eventType))
	return nil
}

func newMessage(ctx context.Context, key, eventType string, event interface{}) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	headers := []kafka.Header{{Key: HeaderEventType, Value: []byte(eventType)}}
	if id := util.TraceID(ctx); id != "" {
		headers = append(headers, kafka.Header{Key: HeaderTraceID, Value: []byte(id)})
	}

	return kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}, nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close flushes pending writes and closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads order events as part of a consumer group
type Consumer struct {
	reader  *kafka.Reader
	backoff time.Duration
	logger  *zap.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{reader: reader, backoff: time.Second, logger: util.GetLogger()}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MessageHandler processes one message
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming fetches messages until ctx is cancelled.
// A failing message is retried a few times, then logged and committed so one
// bad event cannot stall the partition.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting Kafka consumer",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			c.logger.Warn("Error fetching message", zap.Error(err))
			if !sleep(ctx, c.backoff) {
				return ctx.Err()
			}
			continue
		}

		if err := c.handle(ctx, msg, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			util.EventsFailedTotal.WithLabelValues(header(msg, HeaderEventType)).Inc()
			c.logger.Error("Giving up on message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.String("trace_id", header(msg, HeaderTraceID)),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Error committing message", zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	return retry(ctx, maxHandleAttempts, c.backoff, func() error {
		return handler(ctx, msg)
	})
}

// retry calls fn up to attempts times, waiting a linearly growing delay between tries
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts || !sleep(ctx, time.Duration(i)*delay) {
			break
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
