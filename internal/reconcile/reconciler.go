// Package reconcile resolves movements stuck in PENDING. A staged movement
// whose process crashed before the mutation transaction committed never
// moved any money, so the sweep marks it FAILED with a reconciliation
// reason and emits the terminal event through the outbox.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"

	"github.com/mybankaccount-ledger/internal/config"
	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/outbox"
)

// TxRunner runs a function inside a database transaction, rolling back on
// error or panic.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Reconciler periodically sweeps stale PENDING movements and resolves them
type Reconciler struct {
	db        TxRunner
	accounts  account.Repository
	movements movement.Repository
	outbox    outbox.Repository
	pool      *ants.Pool
	logger    *slog.Logger

	sweepInterval    time.Duration
	pendingThreshold time.Duration
	batchSize        int
}

// NewReconciler creates a reconciler backed by a worker pool of the
// configured size.
func NewReconciler(
	cfg *config.ReconcilerConfig,
	poolSize int,
	db TxRunner,
	accounts account.Repository,
	movements movement.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) (*Reconciler, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciler worker pool: %w", err)
	}

	return &Reconciler{
		db:               db,
		accounts:         accounts,
		movements:        movements,
		outbox:           outboxRepo,
		pool:             pool,
		logger:           logger,
		sweepInterval:    cfg.SweepInterval,
		pendingThreshold: cfg.PendingThreshold,
		batchSize:        cfg.BatchSize,
	}, nil
}

// Start begins the periodic sweep. It blocks until the context is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting reconciliation sweep",
		"sweep_interval", r.sweepInterval.String(),
		"pending_threshold", r.pendingThreshold.String(),
		"batch_size", r.batchSize,
	)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping reconciliation sweep")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("Reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep resolves one batch of stale PENDING movements. Each movement is
// handled by its own worker; the call returns once the whole batch settled.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.pendingThreshold)
	stale, err := r.movements.ListStalePending(ctx, cutoff, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale pending movements: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	r.logger.Info("Resolving stale pending movements", "count", len(stale), "cutoff", cutoff)

	var wg sync.WaitGroup
	for _, m := range stale {
		m := m
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			if err := r.resolve(ctx, m); err != nil {
				r.logger.Error("Failed to resolve stale movement",
					"reference", m.Reference,
					"error", err,
				)
			}
		}); err != nil {
			wg.Done()
			r.logger.Error("Failed to submit stale movement to worker pool",
				"reference", m.Reference,
				"error", err,
			)
		}
	}
	wg.Wait()

	return nil
}

// resolve marks a single stale movement FAILED and enqueues the terminal
// event in the same transaction. Losing the conditional update to a
// concurrent completion or cancellation is not an error; the movement is
// simply no longer stale.
func (r *Reconciler) resolve(ctx context.Context, m *movement.Movement) error {
	if err := m.TransitionTo(movement.StatusFailed, string(movement.FailureReasonReconciledTimeout)); err != nil {
		return err
	}

	from, to := r.lookupNumbers(ctx, m)

	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := r.movements.WithTx(tx).UpdateStatus(ctx, m.Reference, movement.StatusFailed, string(movement.FailureReasonReconciledTimeout), *m.ProcessedAt); err != nil {
			return err
		}

		event := &movement.Event{
			Reference:         m.Reference,
			Kind:              m.Kind,
			Status:            m.Status,
			FromAccountNumber: from,
			ToAccountNumber:   to,
			Amount:            m.Amount,
			Fee:               m.Fee,
			Currency:          m.Currency,
			Description:       m.Description,
			FailureReason:     m.FailureReason,
			CreatedAt:         m.CreatedAt,
			ProcessedAt:       m.ProcessedAt,
		}
		msg, err := outbox.NewMessage(m.ID, event)
		if err != nil {
			return fmt.Errorf("failed to build outbox message for %s: %w", m.Reference, err)
		}
		return r.outbox.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, movement.ErrInvalidStateTransition{}) {
			r.logger.Info("Stale movement already resolved elsewhere", "reference", m.Reference)
			return nil
		}
		return err
	}

	r.logger.Info("Marked stale movement failed",
		"reference", m.Reference,
		"reason", string(movement.FailureReasonReconciledTimeout),
	)
	return nil
}

// lookupNumbers resolves the external account numbers for the event. A
// missing account leaves its number empty rather than blocking the sweep.
func (r *Reconciler) lookupNumbers(ctx context.Context, m *movement.Movement) (from, to string) {
	if m.FromAccountID != nil {
		if acc, err := r.accounts.GetByID(ctx, *m.FromAccountID); err == nil {
			from = acc.Number
		}
	}
	if m.ToAccountID != nil {
		if acc, err := r.accounts.GetByID(ctx, *m.ToAccountID); err == nil {
			to = acc.Number
		}
	}
	return from, to
}

// Shutdown releases the worker pool.
func (r *Reconciler) Shutdown() {
	r.logger.Info("Shutting down reconciler worker pool", "running_workers", r.pool.Running())
	r.pool.Release()
}
