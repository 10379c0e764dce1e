package movement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is the wire representation of a movement that reached a terminal
// status. It is written to the outbox in the same transaction as the status
// change, published to Kafka by the poller, and archived by the consumer.
// Accounts are carried by external number so downstream consumers never
// need the internal ids.
type Event struct {
	Reference         string          `json:"reference"`
	Kind              Kind            `json:"kind"`
	Status            Status          `json:"status"`
	FromAccountNumber string          `json:"from_account_number,omitempty"`
	ToAccountNumber   string          `json:"to_account_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Fee               decimal.Decimal `json:"fee"`
	Currency          string          `json:"currency"`
	Description       string          `json:"description,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CorrelationID     string          `json:"correlation_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}
