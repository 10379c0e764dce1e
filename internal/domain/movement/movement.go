// Package movement defines the immutable audit record of every
// balance-affecting event and its status machine. A movement is a tagged
// variant: the kind decides which of the source and destination accounts
// are set.
package movement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind defines possible movement operations
type Kind string

const (
	KindTransfer   Kind = "TRANSFER"
	KindDeposit    Kind = "DEPOSIT"
	KindWithdrawal Kind = "WITHDRAWAL"
	KindPayment    Kind = "PAYMENT"
)

// ValidKind reports whether k is a known movement kind
func ValidKind(k Kind) bool {
	switch k {
	case KindTransfer, KindDeposit, KindWithdrawal, KindPayment:
		return true
	}
	return false
}

// Status defines movement processing states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether s permits no further transitions
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FailureReason defines movement failure categories
type FailureReason string

const (
	FailureReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonAccountNotFound   FailureReason = "ACCOUNT_NOT_FOUND"
	FailureReasonAccountInactive   FailureReason = "ACCOUNT_INACTIVE"
	FailureReasonOperationFailed   FailureReason = "OPERATION_FAILED"
	FailureReasonReconciledTimeout FailureReason = "RECONCILED_TIMEOUT"
)

// Movement represents an atomic, auditable record of a balance-affecting
// event. FromAccountID and ToAccountID are both set for transfers, only
// ToAccountID for deposits, and only FromAccountID for withdrawals and
// payments. At least one is always non-nil.
type Movement struct {
	ID            uuid.UUID       `json:"id"`
	Reference     string          `json:"reference"` // Unique external identifier, immutable
	FromAccountID *uuid.UUID      `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID      `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Currency      string          `json:"currency"`
	Kind          Kind            `json:"kind"`
	Status        Status          `json:"status"`
	Description   string          `json:"description"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// New stages a movement in PENDING with a zero fee
func New(reference string, kind Kind, from, to *uuid.UUID, amount decimal.Decimal, currency, description string) *Movement {
	return &Movement{
		ID:            uuid.New(),
		Reference:     reference,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Fee:           decimal.Zero,
		Currency:      currency,
		Kind:          kind,
		Status:        StatusPending,
		Description:   description,
		CreatedAt:     time.Now(),
	}
}

// TransitionTo is the only writer of status, failure reason, and the
// processed timestamp. The only legal transitions are PENDING to
// COMPLETED, FAILED, or CANCELLED; terminal states accept nothing.
func (m *Movement) TransitionTo(status Status, reason string) error {
	if m.Status != StatusPending || !status.Terminal() {
		return ErrInvalidStateTransition{From: m.Status, To: status}
	}

	m.Status = status
	if status == StatusFailed {
		m.FailureReason = reason
	}
	now := time.Now()
	m.ProcessedAt = &now
	return nil
}

// TotalAmount returns amount plus fee, the full impact on the source account
func (m *Movement) TotalAmount() decimal.Decimal {
	return m.Amount.Add(m.Fee)
}
