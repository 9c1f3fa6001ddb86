package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks kafkago.RequiredAcks
	MaxAttempts  int
}

// DefaultProducerConfig returns sensible producer defaults.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  3,
	}
}

// Producer publishes events to Kafka topics. A single producer is safe for
// concurrent use and writes to any topic.
type Producer struct {
	writer  *kafkago.Writer
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a Kafka producer.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: cfg.RequiredAcks,
		MaxAttempts:  cfg.MaxAttempts,
		Logger:       kafkago.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			logger.Error(fmt.Sprintf("kafka producer: "+msg, args...))
		}),
	}

	return &Producer{writer: writer, brokers: cfg.Brokers, logger: logger}
}

// Publish serializes the event and writes it to the topic. The key determines
// partition placement so events for one user stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}
	return nil
}

// Ping checks connectivity to the first broker.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", p.brokers[0], err)
	}
	return conn.Close()
}

// Close flushes pending messages and releases resources.
func (p *Producer) Close() error {
	return p.writer.Close()
}
