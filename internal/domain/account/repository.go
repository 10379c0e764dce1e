package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations. Credit and Debit are
// the only entry points that mutate balances; Debit performs its
// sufficiency check and the decrement as one indivisible statement.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByNumber(ctx context.Context, number string) (*Account, error)

	// FindActiveByNumber resolves an active account by its external number.
	// Returns ErrAccountNotFound or ErrAccountInactive.
	FindActiveByNumber(ctx context.Context, number string) (*Account, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Account, error)

	// Update persists mutable non-balance attributes (type, currency, active flag)
	Update(ctx context.Context, account *Account) error

	// ExistsByNumber reports whether any account (active or not) holds the number.
	// Used by the reference generator's uniqueness check.
	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// Credit increases the balance of an active account. Amount must be positive.
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// Debit decreases the balance if and only if the current balance covers
	// the amount; otherwise ErrInsufficientFunds. Amount must be positive.
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// LockForUpdate acquires a row lock on the account for the duration of
	// the surrounding transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates a missing account. Ref holds the number or
// id used in the lookup.
type ErrAccountNotFound struct {
	Ref string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.Ref
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	// An empty target Ref matches any ErrAccountNotFound
	if t.Ref == "" {
		return true
	}
	return e.Ref == t.Ref
}

// ErrAccountInactive indicates the account exists but is deactivated
type ErrAccountInactive struct {
	Number string
}

func (e ErrAccountInactive) Error() string {
	return "account is not active: " + e.Number
}

// Is implements the errors.Is interface for ErrAccountInactive
func (e ErrAccountInactive) Is(target error) bool {
	t, ok := target.(ErrAccountInactive)
	if !ok {
		return false
	}
	if t.Number == "" {
		return true
	}
	return e.Number == t.Number
}

// ErrDuplicateNumber indicates account number uniqueness violation
type ErrDuplicateNumber struct {
	Number string
}

func (e ErrDuplicateNumber) Error() string {
	return "account with number already exists: " + e.Number
}
