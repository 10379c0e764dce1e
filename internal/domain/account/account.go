package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrInvalidAccountType    = errors.New("invalid account type")
	ErrNonZeroBalance        = errors.New("account balance must be zero to deactivate")
)

// Type classifies an account
type Type string

const (
	TypeChecking Type = "CHECKING"
	TypeSavings  Type = "SAVINGS"
	TypeBusiness Type = "BUSINESS"
)

// ValidType reports whether t is a known account classification
func ValidType(t Type) bool {
	switch t {
	case TypeChecking, TypeSavings, TypeBusiness:
		return true
	}
	return false
}

// Account represents a bank account. The balance is only ever mutated
// through the store's Credit and Debit operations and never goes negative.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Number    string          `json:"number"` // Unique 12-digit account number
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Type      Type            `json:"type"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount creates a new active account with a zero balance
func NewAccount(number string, userID uuid.UUID, accountType Type, currency string) (*Account, error) {
	if !ValidType(accountType) {
		return nil, ErrInvalidAccountType
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		Number:    number,
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Type:      accountType,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanWithdraw checks if the account has sufficient funds for a withdrawal.
// This is advisory only; the store's Debit is the authoritative guard.
func (a *Account) CanWithdraw(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Deactivate marks the account inactive. Only a zero-balance account may be
// deactivated; accounts with movement history are never deleted.
func (a *Account) Deactivate() error {
	if !a.Balance.IsZero() {
		return ErrNonZeroBalance
	}
	a.Active = false
	a.UpdatedAt = time.Now()
	return nil
}

// Activate marks the account active again
func (a *Account) Activate() {
	a.Active = true
	a.UpdatedAt = time.Now()
}
