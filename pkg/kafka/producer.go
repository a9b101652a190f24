package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	// RequiredAcks specifies the number of acks required
	// 0 = no acks, 1 = leader only, -1 = all replicas
	RequiredAcks int
	MaxAttempts  int
	WriteTimeout time.Duration
	// Compression is one of none, gzip, snappy, lz4, zstd
	Compression string
	// AllowAutoTopicCreation lets the broker create missing topics on
	// first publish
	AllowAutoTopicCreation bool
}

// DefaultProducerConfig returns a ProducerConfig with sensible defaults
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:                []string{"localhost:9092"},
		BatchSize:              100,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           1,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		Compression:            "snappy",
		AllowAutoTopicCreation: true,
	}
}

// Producer publishes messages to Kafka. The writer carries no fixed topic so
// callers route each message themselves.
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var compression kafka.Compression
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	default:
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // hash by key for partition affinity
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		Compression:            compression,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishJSON marshals payload and publishes it to the topic. The key drives
// partition affinity; the current trace context rides along as a traceparent
// header when one is active.
func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, headers map[string]string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	kafkaHeaders := make([]kafka.Header, 0, len(headers)+1)
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}
	if traceParent := tracing.GetTraceParent(ctx); traceParent != "" {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: "traceparent", Value: []byte(traceParent)})
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: kafkaHeaders,
		Time:    time.Now().UTC(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
