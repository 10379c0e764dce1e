package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/payment"
	"github.com/mybankaccount-ledger/internal/engine"
	"github.com/mybankaccount-ledger/internal/payments"
	"github.com/mybankaccount-ledger/internal/query"
)

// AccountService defines the interface for account operations
type AccountService interface {
	// CreateAccount opens a new active account with a generated number and
	// a zero balance
	CreateAccount(ctx context.Context, userID uuid.UUID, accountType account.Type, currency string) (*account.Account, error)

	// GetAccountByNumber retrieves an account by its external number.
	// Returns ErrAccountNotFound if the account doesn't exist.
	GetAccountByNumber(ctx context.Context, number string) (*account.Account, error)

	ListAccounts(ctx context.Context, userID uuid.UUID) ([]*account.Account, error)

	// SetAccountActive activates or deactivates an account. Deactivation
	// requires a zero balance.
	SetAccountActive(ctx context.Context, number string, active bool) (*account.Account, error)
}

// MovementService is implemented by the movement engine
type MovementService interface {
	Deposit(ctx context.Context, cmd engine.DepositCommand) (*movement.Movement, error)
	Withdraw(ctx context.Context, cmd engine.WithdrawCommand) (*movement.Movement, error)
	Transfer(ctx context.Context, cmd engine.TransferCommand) (*movement.Movement, error)
	CancelMovement(ctx context.Context, reference string) (*movement.Movement, error)
}

// PaymentService is implemented by the payment orchestrator
type PaymentService interface {
	CreatePayment(ctx context.Context, cmd payments.CreatePaymentCommand) (*payment.Payment, error)
	ProcessPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.Payment, error)
	CancelPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.Payment, error)
	GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID, filter payment.Filter, limit, offset int) ([]*payment.Payment, error)
	Summary(ctx context.Context, userID uuid.UUID) (*payment.Summary, error)
}

// QueryService is implemented by the read-side query service
type QueryService interface {
	GetMovementByReference(ctx context.Context, reference string) (*movement.Movement, error)
	GetMovementsForAccount(ctx context.Context, accountNumber string, filter movement.Filter, page, perPage int) (*query.HistoryPage, error)
	GetBalanceSummary(ctx context.Context, accountNumber string) (*query.BalanceSummary, error)
}
