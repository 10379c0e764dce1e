package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/platform/persistence"
)

// MovementRepository implements the movement.Repository interface for PostgreSQL
type MovementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMovementRepository creates a new PostgreSQL movement repository
func NewMovementRepository(logger *slog.Logger, db *persistence.PostgresDB) movement.Repository {
	return &MovementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *MovementRepository) WithTx(tx pgx.Tx) movement.Repository {
	return &MovementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stages a movement record. A colliding reference surfaces as
// ErrDuplicateReference.
func (r *MovementRepository) Create(ctx context.Context, m *movement.Movement) error {
	query := `
		INSERT INTO movements (id, reference, kind, status, from_account_id, to_account_id, amount, fee, currency, description, failure_reason, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID,
		m.Reference,
		m.Kind,
		m.Status,
		m.FromAccountID,
		m.ToAccountID,
		m.Amount,
		m.Fee,
		m.Currency,
		m.Description,
		m.FailureReason,
		m.CreatedAt,
		m.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return movement.ErrDuplicateReference
		}
		r.logger.Error("Failed to create movement", "reference", m.Reference, "error", err)
		return fmt.Errorf("failed to create movement: %w", err)
	}

	return nil
}

// GetByReference retrieves a movement by its external reference
func (r *MovementRepository) GetByReference(ctx context.Context, reference string) (*movement.Movement, error) {
	query := movementSelectColumns + `
		WHERE reference = $1
	`

	m, err := r.scanMovement(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, movement.ErrMovementNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get movement", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}

	return m, nil
}

// ExistsByReference reports whether a movement holds the given reference
func (r *MovementRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM movements WHERE reference = $1)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, reference).Scan(&exists); err != nil {
		r.logger.Error("Failed to check movement reference existence", "reference", reference, "error", err)
		return false, fmt.Errorf("failed to check movement reference existence: %w", err)
	}

	return exists, nil
}

// UpdateStatus transitions a movement out of PENDING. The WHERE clause
// guards the current status, so a movement that already reached a terminal
// state stays untouched and the caller sees ErrInvalidStateTransition.
func (r *MovementRepository) UpdateStatus(ctx context.Context, reference string, status movement.Status, reason string, processedAt time.Time) error {
	query := `
		UPDATE movements
		SET status = $1, failure_reason = NULLIF($2, ''), processed_at = $3
		WHERE reference = $4 AND status = $5
	`

	result, err := r.querier.Exec(ctx, query, status, reason, processedAt, reference, movement.StatusPending)
	if err != nil {
		r.logger.Error("Failed to update movement status",
			"reference", reference,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update movement status: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, err := r.GetByReference(ctx, reference)
		if err != nil {
			return err
		}
		return movement.ErrInvalidStateTransition{From: current.Status, To: status}
	}

	return nil
}

// ListStalePending returns PENDING movements created before the cutoff,
// oldest first
func (r *MovementRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*movement.Movement, error) {
	query := movementSelectColumns + `
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, movement.StatusPending, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to list stale pending movements", "error", err)
		return nil, fmt.Errorf("failed to list stale pending movements: %w", err)
	}
	defer rows.Close()

	var movements []*movement.Movement
	for rows.Next() {
		m, err := r.scanMovement(rows)
		if err != nil {
			r.logger.Error("Failed to scan movement", "error", err)
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over movements", "error", err)
		return nil, fmt.Errorf("error iterating over movements: %w", err)
	}

	return movements, nil
}

// Totals aggregates COMPLETED movements touching the account. Incoming
// counts credits into the account, outgoing counts debits including fees.
func (r *MovementRepository) Totals(ctx context.Context, accountID uuid.UUID) (*movement.AccountTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE to_account_id = $1), 0) AS incoming,
			COALESCE(SUM(amount + fee) FILTER (WHERE from_account_id = $1), 0) AS outgoing,
			COUNT(*) AS movement_count
		FROM movements
		WHERE status = $2 AND (from_account_id = $1 OR to_account_id = $1)
	`

	var totals movement.AccountTotals
	err := r.querier.QueryRow(ctx, query, accountID, movement.StatusCompleted).Scan(
		&totals.Incoming,
		&totals.Outgoing,
		&totals.MovementCount,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate movement totals", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to aggregate movement totals: %w", err)
	}

	return &totals, nil
}

const movementSelectColumns = `
		SELECT id, reference, kind, status, from_account_id, to_account_id, amount, fee, currency, COALESCE(description, ''), COALESCE(failure_reason, ''), created_at, processed_at
		FROM movements`

func (r *MovementRepository) scanMovement(row pgx.Row) (*movement.Movement, error) {
	var m movement.Movement
	err := row.Scan(
		&m.ID,
		&m.Reference,
		&m.Kind,
		&m.Status,
		&m.FromAccountID,
		&m.ToAccountID,
		&m.Amount,
		&m.Fee,
		&m.Currency,
		&m.Description,
		&m.FailureReason,
		&m.CreatedAt,
		&m.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
