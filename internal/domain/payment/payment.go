// Package payment models bill payments: a thin specialization over the
// movement engine that tracks a recipient and a stricter status machine.
package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type categorizes a bill payment
type Type string

const (
	TypeElectricity Type = "ELECTRICITY"
	TypeWater       Type = "WATER"
	TypeGas         Type = "GAS"
	TypeInternet    Type = "INTERNET"
	TypePhone       Type = "PHONE"
	TypeCreditCard  Type = "CREDIT_CARD"
	TypeLoan        Type = "LOAN"
	TypeInsurance   Type = "INSURANCE"
	TypeTax         Type = "TAX"
	TypeOther       Type = "OTHER"
)

// Types lists all payment categories for display surfaces
func Types() []Type {
	return []Type{
		TypeElectricity, TypeWater, TypeGas, TypeInternet, TypePhone,
		TypeCreditCard, TypeLoan, TypeInsurance, TypeTax, TypeOther,
	}
}

// ValidType reports whether t is a known payment category
func ValidType(t Type) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Status defines payment processing states
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether s permits no further transitions
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// transitions is the full table of permitted status changes:
// PENDING -> PROCESSING -> COMPLETED | FAILED, and PENDING -> CANCELLED.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether the table permits from -> to
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment represents one bill payment. The recipient account is free text
// and not necessarily an account in this system. Once processed, the
// payment owns its correlation to exactly one movement.
type Payment struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	AccountID         uuid.UUID       `json:"account_id"`
	Type              Type            `json:"type"`
	Status            Status          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	RecipientName     string          `json:"recipient_name"`
	RecipientAccount  string          `json:"recipient_account,omitempty"`
	Reference         string          `json:"reference,omitempty"` // Caller-supplied bill reference
	CorrelationID     string          `json:"correlation_id"`      // Generated PAY-XXXXXXXX identifier
	MovementReference string          `json:"movement_reference,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	Description       string          `json:"description,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}

// New stages a payment in PENDING
func New(userID, accountID uuid.UUID, paymentType Type, amount decimal.Decimal, recipientName, recipientAccount, reference, correlationID, description string) *Payment {
	now := time.Now()
	return &Payment{
		ID:               uuid.New(),
		UserID:           userID,
		AccountID:        accountID,
		Type:             paymentType,
		Status:           StatusPending,
		Amount:           amount,
		RecipientName:    recipientName,
		RecipientAccount: recipientAccount,
		Reference:        reference,
		CorrelationID:    correlationID,
		Description:      description,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// TransitionTo is the only writer of status, failure reason, and the
// processed timestamp, enforcing the transition table.
func (p *Payment) TransitionTo(status Status, reason string) error {
	if !CanTransition(p.Status, status) {
		return ErrInvalidStateTransition{From: p.Status, To: status}
	}

	now := time.Now()
	p.Status = status
	p.UpdatedAt = now
	if status == StatusFailed {
		p.FailureReason = reason
	}
	if status.Terminal() {
		p.ProcessedAt = &now
	}
	return nil
}

// OwnedBy reports whether the payment belongs to the user
func (p *Payment) OwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}
