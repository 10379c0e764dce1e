// Package query serves the read side: single movement lookups from the
// system of record, account history from the Mongo archive, and balance
// aggregates from Postgres.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service answers read queries. History reads come from the archive, which
// is fed asynchronously through the outbox pipeline and therefore trails
// the system of record slightly.
type Service struct {
	accounts  account.Repository
	movements movement.Repository
	archive   movement.ArchiveRepository
	logger    *slog.Logger
}

// NewService creates a query service
func NewService(
	accounts account.Repository,
	movements movement.Repository,
	archive movement.ArchiveRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		movements: movements,
		archive:   archive,
		logger:    logger,
	}
}

// HistoryPage is one page of archived movement history
type HistoryPage struct {
	Movements []*movement.Event `json:"movements"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

// BalanceSummary aggregates an account's position from COMPLETED movements
type BalanceSummary struct {
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	TotalIncoming decimal.Decimal `json:"total_incoming"`
	TotalOutgoing decimal.Decimal `json:"total_outgoing"`
	MovementCount int64           `json:"movement_count"`
}

// GetMovementByReference reads a movement from the system of record
func (s *Service) GetMovementByReference(ctx context.Context, reference string) (*movement.Movement, error) {
	return s.movements.GetByReference(ctx, reference)
}

// GetMovementsForAccount returns one page of archived history for the
// account. The account must exist in the system of record; the history
// itself is eventually consistent.
func (s *Service) GetMovementsForAccount(ctx context.Context, accountNumber string, filter movement.Filter, page, perPage int) (*HistoryPage, error) {
	acc, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	offset := (page - 1) * perPage

	events, err := s.archive.ListForAccount(ctx, acc.Number, filter, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived movements for %s: %w", acc.Number, err)
	}
	total, err := s.archive.CountForAccount(ctx, acc.Number, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count archived movements for %s: %w", acc.Number, err)
	}

	return &HistoryPage{
		Movements: events,
		Total:     total,
		Page:      page,
		PerPage:   perPage,
	}, nil
}

// GetBalanceSummary returns the current balance together with lifetime
// incoming and outgoing totals over COMPLETED movements.
func (s *Service) GetBalanceSummary(ctx context.Context, accountNumber string) (*BalanceSummary, error) {
	acc, err := s.accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	totals, err := s.movements.Totals(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate movements for %s: %w", acc.Number, err)
	}

	return &BalanceSummary{
		AccountNumber: acc.Number,
		Balance:       acc.Balance,
		Currency:      acc.Currency,
		TotalIncoming: totals.Incoming,
		TotalOutgoing: totals.Outgoing,
		MovementCount: totals.MovementCount,
	}, nil
}
