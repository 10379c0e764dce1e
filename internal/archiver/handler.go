// Package archiver consumes terminal movement events from Kafka and writes
// them to the long-term archive. Upserts keyed by reference keep redelivery
// idempotent; poison messages go to the DLQ instead of blocking the
// partition.
package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/platform/messaging/producers"
)

// MovementEventHandler handles incoming movement events from Kafka
type MovementEventHandler struct {
	archive  movement.ArchiveRepository
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewMovementEventHandler creates a new handler
func NewMovementEventHandler(
	logger *slog.Logger,
	archive movement.ArchiveRepository,
	producer producers.DeadLetterPublisher,
) *MovementEventHandler {
	return &MovementEventHandler{
		archive:  archive,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes Kafka messages
func (h *MovementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event movement.Event
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal movement event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received movement event for archiving",
		"reference", event.Reference,
		"kind", string(event.Kind),
		"status", string(event.Status),
	)

	if err := h.archive.Upsert(ctx, &event); err != nil {
		logger.Error("Failed to archive movement event",
			"reference", event.Reference,
			"error", err,
		)
		return fmt.Errorf("archiving movement event %s failed: %w", event.Reference, err)
	}

	logger.Info("Successfully archived movement event", "reference", event.Reference)
	return nil // Success, commit offset
}
