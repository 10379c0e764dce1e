package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mybankaccount-ledger/internal/domain/payment"
	"github.com/mybankaccount-ledger/internal/platform/persistence"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new payment in pending status
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (id, correlation_id, user_id, account_id, payment_type, status, amount, recipient_name, recipient_account, reference, description, movement_reference, failure_reason, created_at, updated_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.CorrelationID,
		p.UserID,
		p.AccountID,
		p.Type,
		p.Status,
		p.Amount,
		p.RecipientName,
		p.RecipientAccount,
		p.Reference,
		p.Description,
		p.MovementReference,
		p.FailureReason,
		p.CreatedAt,
		p.UpdatedAt,
		p.ProcessedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "correlation_id", p.CorrelationID, "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := paymentSelectColumns + `
		WHERE id = $1
	`

	p, err := r.scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: id}
		}
		r.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// GetByCorrelationID retrieves a payment by its external correlation id
func (r *PaymentRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*payment.Payment, error) {
	query := paymentSelectColumns + `
		WHERE correlation_id = $1
	`

	p, err := r.scanPayment(r.querier.QueryRow(ctx, query, correlationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{}
		}
		r.logger.Error("Failed to get payment by correlation id", "correlation_id", correlationID, "error", err)
		return nil, fmt.Errorf("failed to get payment by correlation id: %w", err)
	}

	return p, nil
}

// ExistsByCorrelationID reports whether a payment holds the correlation id
func (r *PaymentRepository) ExistsByCorrelationID(ctx context.Context, correlationID string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM payments WHERE correlation_id = $1)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, correlationID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check payment correlation id existence", "correlation_id", correlationID, "error", err)
		return false, fmt.Errorf("failed to check payment correlation id existence: %w", err)
	}

	return exists, nil
}

// TransitionStatus performs a compare-and-set on the payment status. A
// raced or illegal transition leaves the row untouched and surfaces as
// ErrInvalidStateTransition with the actual current status.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to payment.Status, reason string) error {
	query := `
		UPDATE payments
		SET status = $1, failure_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, to, reason, id, from)
	if err != nil {
		r.logger.Error("Failed to transition payment status",
			"id", id.String(),
			"from", string(from),
			"to", string(to),
			"error", err,
		)
		return fmt.Errorf("failed to transition payment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return payment.ErrInvalidStateTransition{From: current.Status, To: to}
	}

	return nil
}

// Update persists processing outcome fields alongside the current status
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, movement_reference = NULLIF($2, ''), failure_reason = NULLIF($3, ''), updated_at = $4, processed_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		p.Status,
		p.MovementReference,
		p.FailureReason,
		p.UpdatedAt,
		p.ProcessedAt,
		p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update payment", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrPaymentNotFound{PaymentID: p.ID}
	}

	return nil
}

// ListByUser retrieves a user's payments, newest first, narrowed by filter
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter payment.Filter, limit, offset int) ([]*payment.Payment, error) {
	query := paymentSelectColumns + `
		WHERE user_id = $1
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR payment_type = $3)
			AND ($4::timestamptz IS NULL OR created_at >= $4)
			AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7
	`

	rows, err := r.querier.Query(ctx, query,
		userID,
		string(filter.Status),
		string(filter.Type),
		nullableTime(filter.From),
		nullableTime(filter.To),
		limit,
		offset,
	)
	if err != nil {
		r.logger.Error("Failed to list payments", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			r.logger.Error("Failed to scan payment", "error", err)
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over payments", "error", err)
		return nil, fmt.Errorf("error iterating over payments: %w", err)
	}

	return payments, nil
}

// CountByUserAndStatus counts a user's payments in the given status
func (r *PaymentRepository) CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status payment.Status) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM payments
		WHERE user_id = $1 AND status = $2
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, userID, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count payments", "user_id", userID.String(), "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}

	return count, nil
}

// SumCompletedByUserSince totals COMPLETED payments created at or after the cutoff
func (r *PaymentRepository) SumCompletedByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE user_id = $1 AND status = $2 AND created_at >= $3
	`

	var total decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, userID, payment.StatusCompleted, since).Scan(&total); err != nil {
		r.logger.Error("Failed to sum completed payments", "user_id", userID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum completed payments: %w", err)
	}

	return total, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const paymentSelectColumns = `
		SELECT id, correlation_id, user_id, account_id, payment_type, status, amount, recipient_name, recipient_account, COALESCE(reference, ''), COALESCE(description, ''), COALESCE(movement_reference, ''), COALESCE(failure_reason, ''), created_at, updated_at, processed_at
		FROM payments`

func (r *PaymentRepository) scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID,
		&p.CorrelationID,
		&p.UserID,
		&p.AccountID,
		&p.Type,
		&p.Status,
		&p.Amount,
		&p.RecipientName,
		&p.RecipientAccount,
		&p.Reference,
		&p.Description,
		&p.MovementReference,
		&p.FailureReason,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
