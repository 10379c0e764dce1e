package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/outbox"
)

func testOutboxMessage(t *testing.T) *outbox.Message {
	t.Helper()
	event := &movement.Event{
		Reference: "TXNABCDEFGHJKLM",
		Kind:      movement.KindDeposit,
		Status:    movement.StatusCompleted,
		Amount:    decimal.NewFromInt(40),
		Currency:  "USD",
		CreatedAt: time.Now(),
	}
	msg, err := outbox.NewMessage(uuid.New(), event)
	require.NoError(t, err)
	return msg
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}
	msg := testOutboxMessage(t)

	query := `INSERT INTO movement_outbox \(movement_id, reference, payload, status, attempts, created_at\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(msg.MovementID, msg.Reference, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		err := repo.Create(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(msg.MovementID, msg.Reference, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, msg)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}
	msg := testOutboxMessage(t)

	query := `SELECT id, movement_id, reference, payload, status, attempts, created_at, last_attempt_at
		FROM movement_outbox
		WHERE status = \$1
		ORDER BY created_at ASC
		LIMIT \$2`

	t.Run("returns pending batch", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "movement_id", "reference", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
			AddRow(int64(1), msg.MovementID, msg.Reference, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt, msg.LastAttemptAt)

		mock.ExpectQuery(query).WithArgs(outbox.StatusPending, 10).WillReturnRows(rows)

		messages, err := repo.GetPending(ctx, 10)
		assert.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, msg.Reference, messages[0].Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}

	query := `UPDATE movement_outbox
		SET status = \$1, last_attempt_at = \$2
		WHERE id = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, 1, outbox.StatusProcessed)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(99)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 99, outbox.StatusProcessed)
		assert.Equal(t, outbox.ErrMessageNotFound{ID: 99}, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: logger}

	query := `DELETE FROM movement_outbox
		WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.Delete(ctx, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(99)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, 99)
		assert.Equal(t, outbox.ErrMessageNotFound{ID: 99}, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
