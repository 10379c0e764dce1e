package movement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages movement persistence in the system of record.
type Repository interface {
	Create(ctx context.Context, m *Movement) error
	GetByReference(ctx context.Context, reference string) (*Movement, error)

	// ExistsByReference reports whether a movement holds the reference.
	// Used by the reference generator's uniqueness check.
	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// UpdateStatus transitions a movement out of PENDING. The update is
	// conditional on the current status still being PENDING so that raced
	// completions and cancellations cannot overwrite a terminal state;
	// a lost race surfaces as ErrInvalidStateTransition.
	UpdateStatus(ctx context.Context, reference string, status Status, reason string, processedAt time.Time) error

	// ListStalePending returns PENDING movements created before the cutoff,
	// oldest first. Input to the reconciliation sweep.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*Movement, error)

	// Totals aggregates COMPLETED movements touching the account
	Totals(ctx context.Context, accountID uuid.UUID) (*AccountTotals, error)

	WithTx(tx pgx.Tx) Repository
}

// AccountTotals aggregates completed movement flows for one account
type AccountTotals struct {
	Incoming      decimal.Decimal
	Outgoing      decimal.Decimal
	MovementCount int64
}

// Filter narrows archive history queries. Zero values mean "no constraint".
type Filter struct {
	From   time.Time
	To     time.Time
	Status Status
	Kind   Kind
}

// ArchiveRepository manages the long-term movement history store fed from
// terminal movement events. It is eventually consistent with the system of
// record and serves filtered history reads.
type ArchiveRepository interface {
	// Upsert stores an event keyed by reference, replacing any previous
	// version so redelivered events stay idempotent
	Upsert(ctx context.Context, event *Event) error

	GetByReference(ctx context.Context, reference string) (*Event, error)
	ListForAccount(ctx context.Context, accountNumber string, filter Filter, limit, offset int) ([]*Event, error)
	CountForAccount(ctx context.Context, accountNumber string, filter Filter) (int64, error)
}
