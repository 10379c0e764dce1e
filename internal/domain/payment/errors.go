package payment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPaymentType rejects an unknown payment category
	ErrInvalidPaymentType = errors.New("unknown payment type")

	// ErrRecipientRequired rejects a payment without a recipient name
	ErrRecipientRequired = errors.New("recipient name is required")
)

// ErrAmountExceedsLimit rejects a payment above the configured ceiling
type ErrAmountExceedsLimit struct {
	Amount decimal.Decimal
	Limit  decimal.Decimal
}

func (e ErrAmountExceedsLimit) Error() string {
	return fmt.Sprintf("payment amount %s exceeds the limit of %s", e.Amount, e.Limit)
}

// Is implements the errors.Is interface for ErrAmountExceedsLimit
func (e ErrAmountExceedsLimit) Is(target error) bool {
	t, ok := target.(ErrAmountExceedsLimit)
	if !ok {
		return false
	}
	if t.Limit.IsZero() {
		return true
	}
	return e.Limit.Equal(t.Limit)
}

// ErrNotAccountOwner rejects a payment against an account the requesting
// user does not own
type ErrNotAccountOwner struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
}

func (e ErrNotAccountOwner) Error() string {
	return fmt.Sprintf("account %s does not belong to user %s", e.AccountID, e.UserID)
}

// Is implements the errors.Is interface for ErrNotAccountOwner
func (e ErrNotAccountOwner) Is(target error) bool {
	t, ok := target.(ErrNotAccountOwner)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID && e.UserID == t.UserID
}
