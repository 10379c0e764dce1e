package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybankaccount-ledger/internal/domain/account"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountColumns = []string{"id", "account_number", "user_id", "balance", "currency", "account_type", "active", "created_at", "updated_at"}

func accountRow(acc *account.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns).
		AddRow(acc.ID, acc.Number, acc.UserID, acc.Balance, acc.Currency, acc.Type, acc.Active, acc.CreatedAt, acc.UpdatedAt)
}

func testAccount() *account.Account {
	now := time.Now()
	return &account.Account{
		ID:        uuid.New(),
		Number:    "123456789012",
		UserID:    uuid.New(),
		Balance:   decimal.NewFromInt(100),
		Currency:  "USD",
		Type:      account.TypeChecking,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	acc := testAccount()

	query := `INSERT INTO accounts \(id, account_number, user_id, balance, currency, account_type, active, created_at, updated_at\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Number, acc.UserID, acc.Balance, acc.Currency, acc.Type, acc.Active, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate number", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Number, acc.UserID, acc.Balance, acc.Currency, acc.Type, acc.Active, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

		err := repo.Create(ctx, acc)
		assert.Equal(t, account.ErrDuplicateNumber{Number: acc.Number}, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Number, acc.UserID, acc.Balance, acc.Currency, acc.Type, acc.Active, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	acc := testAccount()

	query := `SELECT id, account_number, user_id, balance, currency, account_type, active, created_at, updated_at
		FROM accounts
		WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnRows(accountRow(acc))

		got, err := repo.GetByID(ctx, acc.ID)
		assert.NoError(t, err)
		assert.Equal(t, acc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, acc.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_FindActiveByNumber(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	query := `SELECT id, account_number, user_id, balance, currency, account_type, active, created_at, updated_at
		FROM accounts
		WHERE account_number = \$1`

	t.Run("active account", func(t *testing.T) {
		acc := testAccount()
		mock.ExpectQuery(query).WithArgs(acc.Number).WillReturnRows(accountRow(acc))

		got, err := repo.FindActiveByNumber(ctx, acc.Number)
		assert.NoError(t, err)
		assert.Equal(t, acc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive account", func(t *testing.T) {
		acc := testAccount()
		acc.Active = false
		mock.ExpectQuery(query).WithArgs(acc.Number).WillReturnRows(accountRow(acc))

		got, err := repo.FindActiveByNumber(ctx, acc.Number)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, account.ErrAccountInactive{Number: acc.Number})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("999999999999").WillReturnError(pgx.ErrNoRows)

		got, err := repo.FindActiveByNumber(ctx, "999999999999")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{Ref: "999999999999"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Credit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	amount := decimal.NewFromInt(50)

	query := `UPDATE accounts
		SET balance = balance \+ \$1, updated_at = NOW\(\)
		WHERE id = \$2 AND active`

	t.Run("success", func(t *testing.T) {
		acc := testAccount()
		mock.ExpectExec(query).WithArgs(amount, acc.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Credit(ctx, acc.ID, amount)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		err := repo.Credit(ctx, uuid.New(), decimal.Zero)
		assert.ErrorIs(t, err, account.ErrInvalidAmount)
	})

	t.Run("inactive account", func(t *testing.T) {
		acc := testAccount()
		acc.Active = false
		mock.ExpectExec(query).WithArgs(amount, acc.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT id, account_number, .+ WHERE id = \$1`).WithArgs(acc.ID).WillReturnRows(accountRow(acc))

		err := repo.Credit(ctx, acc.ID, amount)
		assert.ErrorIs(t, err, account.ErrAccountInactive{Number: acc.Number})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(query).WithArgs(amount, id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT id, account_number, .+ WHERE id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		err := repo.Credit(ctx, id, amount)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Debit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	amount := decimal.NewFromInt(50)

	query := `UPDATE accounts
		SET balance = balance - \$1, updated_at = NOW\(\)
		WHERE id = \$2 AND active AND balance >= \$1`

	t.Run("success", func(t *testing.T) {
		acc := testAccount()
		mock.ExpectExec(query).WithArgs(amount, acc.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Debit(ctx, acc.ID, amount)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		acc := testAccount()
		acc.Balance = decimal.NewFromInt(10)
		mock.ExpectExec(query).WithArgs(amount, acc.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT id, account_number, .+ WHERE id = \$1`).WithArgs(acc.ID).WillReturnRows(accountRow(acc))

		err := repo.Debit(ctx, acc.ID, amount)
		assert.ErrorIs(t, err, account.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive account", func(t *testing.T) {
		acc := testAccount()
		acc.Active = false
		mock.ExpectExec(query).WithArgs(amount, acc.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT id, account_number, .+ WHERE id = \$1`).WithArgs(acc.ID).WillReturnRows(accountRow(acc))

		err := repo.Debit(ctx, acc.ID, amount)
		assert.ErrorIs(t, err, account.ErrAccountInactive{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		err := repo.Debit(ctx, uuid.New(), decimal.NewFromInt(-5))
		assert.ErrorIs(t, err, account.ErrInvalidAmount)
	})
}

func TestAccountRepository_ExistsByNumber(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	query := `SELECT EXISTS \(SELECT 1 FROM accounts WHERE account_number = \$1\)`

	t.Run("exists", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("123456789012").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByNumber(ctx, "123456789012")
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("does not exist", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("999999999999").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsByNumber(ctx, "999999999999")
		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	acc := testAccount()

	query := `SELECT id, account_number, user_id, balance, currency, account_type, active, created_at, updated_at
		FROM accounts
		WHERE id = \$1
		FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnRows(accountRow(acc))

		got, err := repo.LockForUpdate(ctx, acc.ID)
		assert.NoError(t, err)
		assert.Equal(t, acc, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(acc.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.LockForUpdate(ctx, acc.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
