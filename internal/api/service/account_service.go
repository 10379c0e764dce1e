package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/refgen"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	refs        *refgen.Generator
	logger      *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository, refs *refgen.Generator, logger *slog.Logger) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		refs:        refs,
		logger:      logger,
	}
}

// CreateAccount opens a new active account with a generated 12-digit number
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID uuid.UUID, accountType account.Type, currency string) (*account.Account, error) {
	number, err := s.refs.AccountNumber(ctx, s.accountRepo.ExistsByNumber)
	if err != nil {
		if errors.Is(err, refgen.ErrExhausted) {
			return nil, movement.ErrDuplicateReference
		}
		return nil, err
	}

	acc, err := account.NewAccount(number, userID, accountType, currency)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "number", acc.Number, "user_id", userID.String(), "type", string(accountType))
	return acc, nil
}

// GetAccountByNumber retrieves an account by its external number
func (s *AccountServiceImpl) GetAccountByNumber(ctx context.Context, number string) (*account.Account, error) {
	return s.accountRepo.GetByNumber(ctx, number)
}

// ListAccounts returns all accounts belonging to the user
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	return s.accountRepo.ListByUser(ctx, userID)
}

// SetAccountActive flips the active flag. Deactivating an account with a
// non-zero balance is rejected; accounts are never deleted.
func (s *AccountServiceImpl) SetAccountActive(ctx context.Context, number string, active bool) (*account.Account, error) {
	acc, err := s.accountRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if active {
		acc.Activate()
	} else {
		if err := acc.Deactivate(); err != nil {
			return nil, err
		}
	}

	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account active flag changed", "number", acc.Number, "active", active)
	return acc, nil
}
