package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages payment persistence.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*Payment, error)

	// ExistsByCorrelationID backs the correlation id generator's uniqueness check
	ExistsByCorrelationID(ctx context.Context, correlationID string) (bool, error)

	// TransitionStatus performs a compare-and-set on the payment status.
	// Zero rows affected means the payment was not in the expected status;
	// that surfaces as ErrInvalidStateTransition carrying the actual state.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, reason string) error

	// Update persists processing outcome fields (movement reference,
	// failure reason, processed timestamp) alongside the current status
	Update(ctx context.Context, p *Payment) error

	ListByUser(ctx context.Context, userID uuid.UUID, filter Filter, limit, offset int) ([]*Payment, error)
	CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status Status) (int64, error)

	// SumCompletedByUserSince totals COMPLETED payments created at or after
	// the cutoff, for the monthly summary
	SumCompletedByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)

	WithTx(tx pgx.Tx) Repository
}

// Filter narrows payment listings. Zero values mean "no constraint".
type Filter struct {
	Status Status
	Type   Type
	From   time.Time
	To     time.Time
}

// Summary aggregates a user's payment activity
type Summary struct {
	PendingCount   int64           `json:"pending_count"`
	CompletedCount int64           `json:"completed_count"`
	FailedCount    int64           `json:"failed_count"`
	MonthlyTotal   decimal.Decimal `json:"monthly_total"`
}

// ErrPaymentNotFound indicates a missing payment record
type ErrPaymentNotFound struct {
	PaymentID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.PaymentID.String()
}

// Is implements the errors.Is interface for ErrPaymentNotFound
func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	if t.PaymentID == uuid.Nil {
		return true
	}
	return e.PaymentID == t.PaymentID
}

// ErrInvalidStateTransition rejects a status change the transition table
// does not permit
type ErrInvalidStateTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid payment status transition: %s -> %s", e.From, e.To)
}

// Is implements the errors.Is interface for ErrInvalidStateTransition
func (e ErrInvalidStateTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidStateTransition)
	if !ok {
		return false
	}
	if t.From == "" && t.To == "" {
		return true
	}
	return e.From == t.From && e.To == t.To
}

// ErrNotPaymentOwner rejects an operation by a user other than the
// payment's owner
type ErrNotPaymentOwner struct {
	PaymentID uuid.UUID
	UserID    uuid.UUID
}

func (e ErrNotPaymentOwner) Error() string {
	return fmt.Sprintf("payment %s does not belong to user %s", e.PaymentID, e.UserID)
}

// Is implements the errors.Is interface for ErrNotPaymentOwner
func (e ErrNotPaymentOwner) Is(target error) bool {
	t, ok := target.(ErrNotPaymentOwner)
	if !ok {
		return false
	}
	if t.PaymentID == uuid.Nil {
		return true
	}
	return e.PaymentID == t.PaymentID && e.UserID == t.UserID
}
