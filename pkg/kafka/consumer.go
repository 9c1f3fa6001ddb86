package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes a single decoded event. Returning an error triggers
// retries; after maxRetries the message is skipped and logged.
type Handler func(ctx context.Context, event Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	Topic      string
	GroupID    string
	MinBytes   int
	MaxBytes   int
	MaxWait    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConsumerConfig returns sensible consumer defaults.
func DefaultConsumerConfig(brokers []string, topic, groupID string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:    brokers,
		Topic:      topic,
		GroupID:    groupID,
		MinBytes:   1,
		MaxBytes:   1 << 20,
		MaxWait:    500 * time.Millisecond,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Consumer reads events from a topic and dispatches them to a handler.
// Offsets are committed only after the handler succeeds or the message is
// given up on, so a crash never loses an unprocessed message.
type Consumer struct {
	reader *kafkago.Reader
	config ConsumerConfig
	logger *slog.Logger
}

// NewConsumer creates a Kafka consumer group member.
func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			logger.Error(fmt.Sprintf("kafka consumer: "+msg, args...))
		}),
	})

	return &Consumer{reader: reader, config: cfg, logger: logger}
}

// Run consumes messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		c.process(ctx, msg, handler)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("commit offset failed",
				slog.String("topic", msg.Topic),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", err),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafkago.Message, handler Handler) {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("skipping malformed message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err),
		)
		return
	}

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return
			}
		}

		err := handler(ctx, event)
		if err == nil {
			return
		}

		c.logger.Warn("event handler failed",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}

	c.logger.Error("giving up on event",
		slog.String("event_type", event.Type),
		slog.String("event_id", event.ID),
		slog.Int("max_retries", c.config.MaxRetries),
	)
}

// Close shuts down the reader and leaves the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
