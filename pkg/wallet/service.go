// Package wallet is the ledger service over per-user-per-currency balances:
// account seeding, advisory balance checks, and atomic debit/credit
// operations that append a ledger transaction row in the same unit of work.
package wallet

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/currency"
	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/repository"
)

// BalanceCache is the optional read-through cache in front of balance
// listings. It is advisory only; implementations return (nil, false) on any
// miss or backend trouble. Satisfied by *cache.Balances in infra/cache.
type BalanceCache interface {
	Get(ctx context.Context, userID uuid.UUID) ([]*domain.WalletBalance, bool)
	Set(ctx context.Context, userID uuid.UUID, balances []*domain.WalletBalance)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Service provides wallet operations.
type Service struct {
	uow      repository.UnitOfWork
	registry *currency.Registry
	cache    BalanceCache
	events   notifier.Notifier
	logger   *slog.Logger
}

// NewService creates a wallet Service. cache may be nil.
func NewService(uow repository.UnitOfWork, registry *currency.Registry, cache BalanceCache, events notifier.Notifier, logger *slog.Logger) *Service {
	return &Service{
		uow:      uow,
		registry: registry,
		cache:    cache,
		events:   events,
		logger:   logger.With("component", "wallet"),
	}
}

// CreateAccount idempotently seeds a zero balance row per supported
// currency for the user.
func (s *Service) CreateAccount(ctx context.Context, userID uuid.UUID) error {
	wallets, err := s.uow.Wallets()
	if err != nil {
		return err
	}
	return wallets.Seed(ctx, userID, s.registry.ListSupported())
}

// Balances returns all balance rows of a user, consulting the cache first.
func (s *Service) Balances(ctx context.Context, userID uuid.UUID) ([]*domain.WalletBalance, error) {
	if s.cache != nil {
		if balances, ok := s.cache.Get(ctx, userID); ok {
			return balances, nil
		}
	}
	wallets, err := s.uow.Wallets()
	if err != nil {
		return nil, err
	}
	balances, err := wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, balances)
	}
	return balances, nil
}

// CheckBalance is the advisory sufficiency check. It exists for fast
// user-facing feedback before a purchase starts; the debit re-validates
// atomically and is the only guard that counts.
func (s *Service) CheckBalance(ctx context.Context, userID uuid.UUID, curr string, amount decimal.Decimal) (*domain.BalanceCheck, error) {
	wallets, err := s.uow.Wallets()
	if err != nil {
		return nil, err
	}
	balance, err := wallets.Get(ctx, userID, curr)
	if err != nil {
		if err == domain.ErrWalletNotFound {
			return &domain.BalanceCheck{Sufficient: false, Current: decimal.Zero}, nil
		}
		return nil, err
	}
	return &domain.BalanceCheck{
		Sufficient: balance.Amount.GreaterThanOrEqual(amount),
		Current:    balance.Amount,
	}, nil
}

// Debit removes funds and appends a withdraw ledger row in one transaction.
// The sufficiency guard runs inside the debit itself; on
// ErrInsufficientFunds nothing is mutated.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, curr string, amount decimal.Decimal) (*domain.Transaction, error) {
	if !s.registry.IsSupported(curr) {
		return nil, currency.ErrUnsupported
	}
	var record *domain.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		wallets, err := uow.Wallets()
		if err != nil {
			return err
		}
		if err := wallets.Debit(ctx, userID, curr, amount); err != nil {
			return err
		}
		txs, err := uow.Transactions()
		if err != nil {
			return err
		}
		record = &domain.Transaction{
			UserID:   userID,
			Currency: curr,
			Amount:   amount,
			Type:     domain.TypeWithdraw,
			Source:   domain.SourceWallet,
			Status:   domain.StatusCompleted,
		}
		return txs.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	s.notifyOperation(ctx, userID, curr, amount, record, "debit")
	return record, nil
}

// Credit adds funds and appends a deposit ledger row in one transaction,
// creating the balance row on first use. It fails only on storage errors.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, curr string, amount decimal.Decimal) (*domain.Transaction, error) {
	if !s.registry.IsSupported(curr) {
		return nil, currency.ErrUnsupported
	}
	var record *domain.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		wallets, err := uow.Wallets()
		if err != nil {
			return err
		}
		if err := wallets.Credit(ctx, userID, curr, amount); err != nil {
			return err
		}
		txs, err := uow.Transactions()
		if err != nil {
			return err
		}
		record = &domain.Transaction{
			UserID:   userID,
			Currency: curr,
			Amount:   amount,
			Type:     domain.TypeDeposit,
			Source:   domain.SourceWallet,
			Status:   domain.StatusCompleted,
		}
		return txs.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
	s.notifyOperation(ctx, userID, curr, amount, record, "credit")
	return record, nil
}

// History returns the user's ledger, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	txs, err := s.uow.Transactions()
	if err != nil {
		return nil, err
	}
	return txs.ListByUser(ctx, userID, limit)
}

func (s *Service) notifyOperation(ctx context.Context, userID uuid.UUID, curr string, amount decimal.Decimal, record *domain.Transaction, op string) {
	event := notifier.Event{
		Kind:     notifier.KindWalletOperation,
		UserID:   userID,
		Amount:   amount,
		Currency: curr,
		Message:  op,
	}
	if record != nil {
		event.TransactionID = &record.ID
	}
	s.events.Notify(ctx, event)
}
