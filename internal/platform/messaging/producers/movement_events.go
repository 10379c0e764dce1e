package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/mybankaccount-ledger/internal/config"
)

// MovementEventProducer publishes terminal movement events drained from the
// outbox. Writes are synchronous with full acks: the poller only deletes an
// outbox row once the broker has confirmed the write.
type MovementEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewMovementEventProducer creates the producer and ensures the topic exists
func NewMovementEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*MovementEventProducer, error) {
	if cfg.MovementTopic == "" {
		return nil, fmt.Errorf("kafka movement topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for movement event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.MovementTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure movement topic %s exists for movement event producer: %w", cfg.MovementTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.MovementTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write movement events", "topic", cfg.MovementTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote movement events", "topic", cfg.MovementTopic, "count", len(messages))
			}
		},
	}

	return &MovementEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.MovementTopic,
	}, nil
}

// Publish writes one movement event keyed by its reference, so redeliveries
// of the same movement land on the same partition in order.
func (p *MovementEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal movement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish movement event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish movement event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published movement event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *MovementEventProducer) Close() error {
	p.logger.Info("Closing movement event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close movement event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
