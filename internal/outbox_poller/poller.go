// Package outbox_poller drains the movement outbox into Kafka. Rows are
// published in FIFO order; a row is marked PROCESSED only after the broker
// acknowledges the write, so every terminal movement event is delivered at
// least once.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mybankaccount-ledger/internal/config"
	"github.com/mybankaccount-ledger/internal/domain/outbox"
	"github.com/mybankaccount-ledger/internal/platform/messaging/producers"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        producers.MessagePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Outbox Poller tick: publishing pending messages")
			if err := p.publishPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch publishing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) publishPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger.With("outbox_id", msg.ID, "reference", msg.Reference)

		event, err := msg.GetEvent()
		if err != nil {
			logger.Error("Failed to unmarshal movement event from outbox payload", "error", err)
			if updateErr := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); updateErr != nil {
				logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "update_error", updateErr)
			}
			continue
		}

		if err := p.publisher.Publish(ctx, msg.Reference, event); err != nil {
			logger.Error("Failed to publish outbox message",
				"current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment attempts for outbox message", "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
					"attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "error", errUpdate)
				}
			}
			continue
		}

		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
			logger.Error("Published outbox message but failed to mark it PROCESSED", "error", err)
			continue
		}
		logger.Info("Successfully published outbox message")
	}
	return nil
}
