// Package postgres provides PostgreSQL implementations of the domain
// repositories. Balance mutations are conditional single statements so the
// sufficiency check and the decrement can never be separated by a
// concurrent writer.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. A colliding account number surfaces as
// ErrDuplicateNumber.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, account_number, user_id, balance, currency, account_type, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Number,
		acc.UserID,
		acc.Balance,
		acc.Currency,
		acc.Type,
		acc.Active,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return account.ErrDuplicateNumber{Number: acc.Number}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := accountSelectColumns + `
		WHERE id = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{Ref: id.String()}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByNumber retrieves an account by its external account number
func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	query := accountSelectColumns + `
		WHERE account_number = $1
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{Ref: number}
		}
		r.logger.Error("Failed to get account by number", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}

	return acc, nil
}

// FindActiveByNumber resolves an active account by its number. A deactivated
// account is reported as ErrAccountInactive rather than not found.
func (r *AccountRepository) FindActiveByNumber(ctx context.Context, number string) (*account.Account, error) {
	acc, err := r.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, account.ErrAccountInactive{Number: number}
	}
	return acc, nil
}

// ListByUser retrieves all accounts owned by a user, newest first
func (r *AccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	query := accountSelectColumns + `
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := r.scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// Update persists mutable non-balance attributes of an account
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET currency = $1, account_type = $2, active = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Currency,
		acc.Type,
		acc.Active,
		acc.UpdatedAt,
		acc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{Ref: acc.ID.String()}
	}

	return nil
}

// ExistsByNumber reports whether any account holds the given number
func (r *AccountRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		r.logger.Error("Failed to check account number existence", "number", number, "error", err)
		return false, fmt.Errorf("failed to check account number existence: %w", err)
	}

	return exists, nil
}

// Credit increases the balance of an active account
func (r *AccountRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return account.ErrInvalidAmount
	}

	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND active
	`

	result, err := r.querier.Exec(ctx, query, amount, id)
	if err != nil {
		r.logger.Error("Failed to credit account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to credit account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyZeroRows(ctx, id)
	}

	return nil
}

// Debit decreases the balance of an active account. The balance check and
// the decrement run as one statement, so a concurrent debit can never
// overdraw the account.
func (r *AccountRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return account.ErrInvalidAmount
	}

	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND active AND balance >= $1
	`

	result, err := r.querier.Exec(ctx, query, amount, id)
	if err != nil {
		r.logger.Error("Failed to debit account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to debit account: %w", err)
	}

	if result.RowsAffected() == 0 {
		if err := r.classifyZeroRows(ctx, id); err != nil {
			return err
		}
		return account.ErrInsufficientFunds
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its current state.
// This should be used within a transaction when strong consistency is required.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := accountSelectColumns + `
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := r.scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{Ref: id.String()}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// classifyZeroRows explains why a conditional balance update matched nothing:
// the account is missing, or it is inactive. A sufficient-balance failure is
// left to the caller.
func (r *AccountRepository) classifyZeroRows(ctx context.Context, id uuid.UUID) error {
	acc, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !acc.Active {
		return account.ErrAccountInactive{Number: acc.Number}
	}
	return nil
}

const accountSelectColumns = `
		SELECT id, account_number, user_id, balance, currency, account_type, active, created_at, updated_at
		FROM accounts`

func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.Number,
		&acc.UserID,
		&acc.Balance,
		&acc.Currency,
		&acc.Type,
		&acc.Active,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
