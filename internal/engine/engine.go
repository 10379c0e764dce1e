// Package engine executes balance-affecting operations as atomic units.
// Every operation stages a PENDING movement record first, then applies the
// balance mutation and the terminal status change in one database
// transaction together with the outbox entry for the event pipeline. A
// crash between the two steps leaves a PENDING record with untouched
// balances; the reconciler closes those out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/outbox"
	"github.com/mybankaccount-ledger/internal/refgen"
)

// TxRunner runs a function inside a database transaction, rolling back on
// error or panic. Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Engine coordinates accounts, movements, and the outbox. All mutating
// methods follow the same shape: validate, stage a PENDING movement, run
// the mutation transaction, and record the outcome.
type Engine struct {
	db        TxRunner
	accounts  account.Repository
	movements movement.Repository
	outbox    outbox.Repository
	refs      *refgen.Generator
	logger    *slog.Logger
}

// NewEngine creates a movement engine
func NewEngine(
	db TxRunner,
	accounts account.Repository,
	movements movement.Repository,
	outboxRepo outbox.Repository,
	refs *refgen.Generator,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:        db,
		accounts:  accounts,
		movements: movements,
		outbox:    outboxRepo,
		refs:      refs,
		logger:    logger,
	}
}

// DepositCommand credits an account
type DepositCommand struct {
	AccountNumber string
	Amount        decimal.Decimal
	Description   string
}

// WithdrawCommand debits an account
type WithdrawCommand struct {
	AccountNumber string
	Amount        decimal.Decimal
	Description   string
}

// TransferCommand moves funds between two accounts
type TransferCommand struct {
	FromAccountNumber string
	ToAccountNumber   string
	Amount            decimal.Decimal
	Description       string
}

// Deposit credits an active account and records a DEPOSIT movement
func (e *Engine) Deposit(ctx context.Context, cmd DepositCommand) (*movement.Movement, error) {
	if !cmd.Amount.IsPositive() {
		return nil, account.ErrInvalidAmount
	}

	acc, err := e.accounts.FindActiveByNumber(ctx, cmd.AccountNumber)
	if err != nil {
		return nil, err
	}

	m, err := e.stage(ctx, movement.KindDeposit, nil, acc, cmd.Amount, cmd.Description)
	if err != nil {
		return nil, err
	}

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := e.accounts.WithTx(tx).Credit(ctx, acc.ID, cmd.Amount); err != nil {
			return err
		}
		return e.complete(ctx, tx, m, nil, acc)
	})
	if err != nil {
		return nil, e.fail(ctx, m, nil, acc, err)
	}

	e.logger.Info("Deposit completed", "reference", m.Reference, "account", acc.Number)
	return m, nil
}

// Withdraw debits an active account and records a WITHDRAWAL movement
func (e *Engine) Withdraw(ctx context.Context, cmd WithdrawCommand) (*movement.Movement, error) {
	return e.withdraw(ctx, cmd, movement.KindWithdrawal)
}

// PaymentWithdrawal debits an account on behalf of the payment orchestrator.
// Identical to Withdraw except the movement is recorded as a PAYMENT.
func (e *Engine) PaymentWithdrawal(ctx context.Context, cmd WithdrawCommand) (*movement.Movement, error) {
	return e.withdraw(ctx, cmd, movement.KindPayment)
}

func (e *Engine) withdraw(ctx context.Context, cmd WithdrawCommand, kind movement.Kind) (*movement.Movement, error) {
	if !cmd.Amount.IsPositive() {
		return nil, account.ErrInvalidAmount
	}

	acc, err := e.accounts.FindActiveByNumber(ctx, cmd.AccountNumber)
	if err != nil {
		return nil, err
	}

	m, err := e.stage(ctx, kind, acc, nil, cmd.Amount, cmd.Description)
	if err != nil {
		return nil, err
	}

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := e.accounts.WithTx(tx).Debit(ctx, acc.ID, m.TotalAmount()); err != nil {
			return err
		}
		return e.complete(ctx, tx, m, acc, nil)
	})
	if err != nil {
		return nil, e.fail(ctx, m, acc, nil, err)
	}

	e.logger.Info("Withdrawal completed", "reference", m.Reference, "account", acc.Number, "kind", string(kind))
	return m, nil
}

// Transfer debits the source and credits the destination as one unit. The
// debit always happens before the credit, and account row locks are taken
// in ascending id order so concurrent opposing transfers cannot deadlock.
func (e *Engine) Transfer(ctx context.Context, cmd TransferCommand) (*movement.Movement, error) {
	if !cmd.Amount.IsPositive() {
		return nil, account.ErrInvalidAmount
	}
	if cmd.FromAccountNumber == cmd.ToAccountNumber {
		return nil, movement.ErrSameAccountTransfer
	}

	from, err := e.accounts.FindActiveByNumber(ctx, cmd.FromAccountNumber)
	if err != nil {
		return nil, err
	}
	to, err := e.accounts.FindActiveByNumber(ctx, cmd.ToAccountNumber)
	if err != nil {
		return nil, err
	}
	if from.ID == to.ID {
		return nil, movement.ErrSameAccountTransfer
	}
	if from.Currency != to.Currency {
		return nil, movement.ErrCurrencyMismatch
	}

	m, err := e.stage(ctx, movement.KindTransfer, from, to, cmd.Amount, cmd.Description)
	if err != nil {
		return nil, err
	}

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accounts := e.accounts.WithTx(tx)

		if err := lockPair(ctx, accounts, from, to); err != nil {
			return err
		}
		if err := accounts.Debit(ctx, from.ID, m.TotalAmount()); err != nil {
			return err
		}
		if err := accounts.Credit(ctx, to.ID, cmd.Amount); err != nil {
			return err
		}
		return e.complete(ctx, tx, m, from, to)
	})
	if err != nil {
		return nil, e.fail(ctx, m, from, to, err)
	}

	e.logger.Info("Transfer completed", "reference", m.Reference, "from", from.Number, "to", to.Number)
	return m, nil
}

// CancelMovement cancels a movement that is still PENDING. By construction
// a PENDING movement has not touched any balance, so cancellation never
// needs a reversal. Anything terminal is rejected.
func (e *Engine) CancelMovement(ctx context.Context, reference string) (*movement.Movement, error) {
	m, err := e.movements.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if err := m.TransitionTo(movement.StatusCancelled, ""); err != nil {
		return nil, err
	}

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := e.movements.WithTx(tx).UpdateStatus(ctx, reference, movement.StatusCancelled, "", *m.ProcessedAt); err != nil {
			return err
		}
		return e.enqueueEvent(ctx, tx, m, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Movement cancelled", "reference", reference)
	return m, nil
}

// stage creates the write-ahead PENDING record. It commits on its own,
// before the mutation transaction, so a crash mid-operation always leaves
// an auditable trace.
func (e *Engine) stage(ctx context.Context, kind movement.Kind, from, to *account.Account, amount decimal.Decimal, description string) (*movement.Movement, error) {
	reference, err := e.refs.MovementReference(ctx, e.movements.ExistsByReference)
	if err != nil {
		if errors.Is(err, refgen.ErrExhausted) {
			return nil, movement.ErrDuplicateReference
		}
		return nil, err
	}

	var fromID, toID *uuid.UUID
	currency := ""
	if from != nil {
		fromID = &from.ID
		currency = from.Currency
	}
	if to != nil {
		toID = &to.ID
		currency = to.Currency
	}

	m := movement.New(reference, kind, fromID, toID, amount, currency, description)
	if err := e.movements.Create(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// complete flips the staged movement to COMPLETED and enqueues the event,
// inside the same transaction as the balance mutation.
func (e *Engine) complete(ctx context.Context, tx pgx.Tx, m *movement.Movement, from, to *account.Account) error {
	if err := m.TransitionTo(movement.StatusCompleted, ""); err != nil {
		return err
	}
	if err := e.movements.WithTx(tx).UpdateStatus(ctx, m.Reference, movement.StatusCompleted, "", *m.ProcessedAt); err != nil {
		return err
	}
	return e.enqueueEvent(ctx, tx, m, from, to)
}

// fail records the failure outcome on the staged movement in a follow-up
// transaction, then hands the original error back to the caller. Unexpected
// infrastructure errors are wrapped so callers can tell them apart from
// business rejections.
func (e *Engine) fail(ctx context.Context, m *movement.Movement, from, to *account.Account, cause error) error {
	reason, business := classifyFailure(cause)

	failed := *m
	if trErr := failed.TransitionTo(movement.StatusFailed, string(reason)); trErr != nil {
		e.logger.Error("Could not mark movement failed", "reference", m.Reference, "error", trErr)
		return cause
	}

	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := e.movements.WithTx(tx).UpdateStatus(ctx, m.Reference, movement.StatusFailed, string(reason), *failed.ProcessedAt); err != nil {
			return err
		}
		return e.enqueueEvent(ctx, tx, &failed, from, to)
	})
	if err != nil {
		e.logger.Error("Failed to record movement failure", "reference", m.Reference, "error", err)
	}

	if business {
		return cause
	}
	return movement.OperationFailedError{Reference: m.Reference, Err: cause}
}

// enqueueEvent writes the movement's event to the outbox within tx
func (e *Engine) enqueueEvent(ctx context.Context, tx pgx.Tx, m *movement.Movement, from, to *account.Account) error {
	event := buildEvent(m, from, to)
	msg, err := outbox.NewMessage(m.ID, event)
	if err != nil {
		return fmt.Errorf("failed to build outbox message for %s: %w", m.Reference, err)
	}
	return e.outbox.WithTx(tx).Create(ctx, msg)
}

func buildEvent(m *movement.Movement, from, to *account.Account) *movement.Event {
	event := &movement.Event{
		Reference:     m.Reference,
		Kind:          m.Kind,
		Status:        m.Status,
		Amount:        m.Amount,
		Fee:           m.Fee,
		Currency:      m.Currency,
		Description:   m.Description,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
	}
	if from != nil {
		event.FromAccountNumber = from.Number
	}
	if to != nil {
		event.ToAccountNumber = to.Number
	}
	return event
}

// lockPair takes FOR UPDATE locks on both accounts in ascending id order
func lockPair(ctx context.Context, accounts account.Repository, a, b *account.Account) error {
	first, second := a, b
	if second.ID.String() < first.ID.String() {
		first, second = second, first
	}
	if _, err := accounts.LockForUpdate(ctx, first.ID); err != nil {
		return err
	}
	_, err := accounts.LockForUpdate(ctx, second.ID)
	return err
}

// classifyFailure maps an error from the mutation transaction to a failure
// reason and reports whether it is a business rejection (returned as-is) or
// an infrastructure fault (wrapped as an operation failure).
func classifyFailure(err error) (movement.FailureReason, bool) {
	switch {
	case errors.Is(err, account.ErrInsufficientFunds):
		return movement.FailureReasonInsufficientFunds, true
	case errors.Is(err, account.ErrAccountNotFound{}):
		return movement.FailureReasonAccountNotFound, true
	case errors.Is(err, account.ErrAccountInactive{}):
		return movement.FailureReasonAccountInactive, true
	case errors.Is(err, movement.ErrInvalidStateTransition{}):
		// A raced cancellation won the status update; surface the conflict.
		return movement.FailureReasonOperationFailed, true
	default:
		return movement.FailureReasonOperationFailed, false
	}
}
