// Package payments orchestrates bill payments on top of the movement
// engine. A payment record tracks the recipient and its own status
// machine; the actual debit is a PAYMENT movement executed by the engine.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mybankaccount-ledger/internal/config"
	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/payment"
	"github.com/mybankaccount-ledger/internal/engine"
	"github.com/mybankaccount-ledger/internal/refgen"
)

// MovementEngine is the slice of the engine the orchestrator needs
type MovementEngine interface {
	PaymentWithdrawal(ctx context.Context, cmd engine.WithdrawCommand) (*movement.Movement, error)
}

// Orchestrator drives bill payments through their status machine
type Orchestrator struct {
	accounts  account.Repository
	payments  payment.Repository
	engine    MovementEngine
	refs      *refgen.Generator
	maxAmount decimal.Decimal
	logger    *slog.Logger
}

// NewOrchestrator creates a payment orchestrator
func NewOrchestrator(
	cfg *config.PaymentsConfig,
	accounts account.Repository,
	payments payment.Repository,
	movementEngine MovementEngine,
	refs *refgen.Generator,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		accounts:  accounts,
		payments:  payments,
		engine:    movementEngine,
		refs:      refs,
		maxAmount: cfg.MaxAmount,
		logger:    logger,
	}
}

// CreatePaymentCommand describes a new bill payment
type CreatePaymentCommand struct {
	UserID           uuid.UUID
	AccountID        uuid.UUID
	Type             payment.Type
	Amount           decimal.Decimal
	RecipientName    string
	RecipientAccount string
	Reference        string
	Description      string
}

// CreatePayment validates the command and stages a PENDING payment. The
// balance check here is advisory only; the engine's debit is the real
// guard when the payment is processed.
func (o *Orchestrator) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (*payment.Payment, error) {
	if !payment.ValidType(cmd.Type) {
		return nil, payment.ErrInvalidPaymentType
	}
	if !cmd.Amount.IsPositive() {
		return nil, account.ErrInvalidAmount
	}
	if cmd.Amount.GreaterThan(o.maxAmount) {
		return nil, payment.ErrAmountExceedsLimit{Amount: cmd.Amount, Limit: o.maxAmount}
	}
	if cmd.RecipientName == "" {
		return nil, payment.ErrRecipientRequired
	}

	acc, err := o.accounts.GetByID(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, account.ErrAccountInactive{Number: acc.Number}
	}
	if acc.UserID != cmd.UserID {
		return nil, payment.ErrNotAccountOwner{AccountID: cmd.AccountID, UserID: cmd.UserID}
	}

	if !acc.CanWithdraw(cmd.Amount) {
		o.logger.Warn("Payment created with insufficient current balance",
			"account", acc.Number,
			"balance", acc.Balance.String(),
			"amount", cmd.Amount.String(),
		)
	}

	correlationID, err := o.refs.PaymentCorrelationID(ctx, o.payments.ExistsByCorrelationID)
	if err != nil {
		if errors.Is(err, refgen.ErrExhausted) {
			return nil, movement.ErrDuplicateReference
		}
		return nil, err
	}

	p := payment.New(cmd.UserID, cmd.AccountID, cmd.Type, cmd.Amount,
		cmd.RecipientName, cmd.RecipientAccount, cmd.Reference, correlationID, cmd.Description)
	if err := o.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	o.logger.Info("Payment created",
		"payment_id", p.ID.String(),
		"correlation_id", p.CorrelationID,
		"type", string(p.Type),
	)
	return p, nil
}

// ProcessPayment executes a pending payment. The PENDING to PROCESSING
// step is a compare-and-set, so two concurrent process calls cannot both
// debit; the loser gets ErrInvalidStateTransition. Failure outcomes are
// recorded on the payment and the causing error is returned.
func (o *Orchestrator) ProcessPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.Payment, error) {
	p, err := o.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, payment.ErrNotPaymentOwner{PaymentID: paymentID, UserID: userID}
	}

	if err := o.payments.TransitionStatus(ctx, p.ID, payment.StatusPending, payment.StatusProcessing, ""); err != nil {
		return nil, err
	}
	p.Status = payment.StatusProcessing

	acc, err := o.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, o.recordFailure(ctx, p, err)
	}

	m, err := o.engine.PaymentWithdrawal(ctx, engine.WithdrawCommand{
		AccountNumber: acc.Number,
		Amount:        p.Amount,
		Description:   fmt.Sprintf("Bill payment %s to %s", p.CorrelationID, p.RecipientName),
	})
	if err != nil {
		return nil, o.recordFailure(ctx, p, err)
	}

	if trErr := p.TransitionTo(payment.StatusCompleted, ""); trErr != nil {
		return nil, trErr
	}
	p.MovementReference = m.Reference
	if err := o.payments.Update(ctx, p); err != nil {
		return nil, err
	}

	o.logger.Info("Payment completed",
		"payment_id", p.ID.String(),
		"correlation_id", p.CorrelationID,
		"movement_reference", m.Reference,
	)
	return p, nil
}

// CancelPayment cancels a payment that has not started processing
func (o *Orchestrator) CancelPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.Payment, error) {
	p, err := o.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, payment.ErrNotPaymentOwner{PaymentID: paymentID, UserID: userID}
	}

	if err := o.payments.TransitionStatus(ctx, p.ID, payment.StatusPending, payment.StatusCancelled, ""); err != nil {
		return nil, err
	}

	o.logger.Info("Payment cancelled", "payment_id", p.ID.String(), "correlation_id", p.CorrelationID)
	return o.payments.GetByID(ctx, paymentID)
}

// GetPayment fetches a payment for its owner
func (o *Orchestrator) GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.Payment, error) {
	p, err := o.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, payment.ErrNotPaymentOwner{PaymentID: paymentID, UserID: userID}
	}
	return p, nil
}

// ListPayments returns the user's payments, newest first
func (o *Orchestrator) ListPayments(ctx context.Context, userID uuid.UUID, filter payment.Filter, limit, offset int) ([]*payment.Payment, error) {
	return o.payments.ListByUser(ctx, userID, filter, limit, offset)
}

// Summary aggregates the user's payment activity: open and settled counts
// plus the completed total for the current calendar month.
func (o *Orchestrator) Summary(ctx context.Context, userID uuid.UUID) (*payment.Summary, error) {
	pending, err := o.payments.CountByUserAndStatus(ctx, userID, payment.StatusPending)
	if err != nil {
		return nil, err
	}
	completed, err := o.payments.CountByUserAndStatus(ctx, userID, payment.StatusCompleted)
	if err != nil {
		return nil, err
	}
	failed, err := o.payments.CountByUserAndStatus(ctx, userID, payment.StatusFailed)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthlyTotal, err := o.payments.SumCompletedByUserSince(ctx, userID, monthStart)
	if err != nil {
		return nil, err
	}

	return &payment.Summary{
		PendingCount:   pending,
		CompletedCount: completed,
		FailedCount:    failed,
		MonthlyTotal:   monthlyTotal,
	}, nil
}

// recordFailure marks the payment FAILED and hands the cause back. The
// payment must already be PROCESSING.
func (o *Orchestrator) recordFailure(ctx context.Context, p *payment.Payment, cause error) error {
	if trErr := p.TransitionTo(payment.StatusFailed, cause.Error()); trErr != nil {
		o.logger.Error("Could not mark payment failed",
			"payment_id", p.ID.String(),
			"error", trErr,
		)
		return cause
	}
	if err := o.payments.Update(ctx, p); err != nil {
		o.logger.Error("Failed to record payment failure",
			"payment_id", p.ID.String(),
			"error", err,
		)
	}
	return cause
}
