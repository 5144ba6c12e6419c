// Package mocks provides testify mocks for the data access contracts, plus
// a UnitOfWork stub that hands them out and runs transaction closures
// inline.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/tolempay/billing/pkg/domain"
	repo "github.com/tolempay/billing/pkg/repository"
)

// WalletRepository is a mock of repository.WalletRepository.
type WalletRepository struct {
	mock.Mock
}

func (m *WalletRepository) Get(ctx context.Context, userID uuid.UUID, currency string) (*domain.WalletBalance, error) {
	args := m.Called(ctx, userID, currency)
	if v := args.Get(0); v != nil {
		return v.(*domain.WalletBalance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WalletRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WalletBalance, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.WalletBalance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WalletRepository) Seed(ctx context.Context, userID uuid.UUID, currencies []string) error {
	return m.Called(ctx, userID, currencies).Error(0)
}

func (m *WalletRepository) Debit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error {
	return m.Called(ctx, userID, currency, amount).Error(0)
}

func (m *WalletRepository) Credit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error {
	return m.Called(ctx, userID, currency, amount).Error(0)
}

// TransactionRepository is a mock of repository.TransactionRepository.
type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	args := m.Called(ctx, orderID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, update repo.TransactionUpdate) error {
	return m.Called(ctx, id, status, update).Error(0)
}

func (m *TransactionRepository) ExistsCompletedPurchase(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, itemID)
	return args.Bool(0), args.Error(1)
}

// SubscriptionRepository is a mock of repository.SubscriptionRepository.
type SubscriptionRepository struct {
	mock.Mock
}

func (m *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *SubscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SubscriptionRepository) ActiveForUser(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.Subscription, error) {
	args := m.Called(ctx, userID, at)
	if v := args.Get(0); v != nil {
		return v.(*domain.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SubscriptionRepository) ExpiringWithin(ctx context.Context, from, until time.Time) ([]*domain.Subscription, error) {
	args := m.Called(ctx, from, until)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SubscriptionRepository) DisableAutoRenewal(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *SubscriptionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *SubscriptionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// PlanRepository is a mock of repository.PlanRepository.
type PlanRepository struct {
	mock.Mock
}

func (m *PlanRepository) GetPlan(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlanRepository) GetPrice(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Price), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlanRepository) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlanRepository) ListPrices(ctx context.Context, planID uuid.UUID) ([]*domain.Price, error) {
	args := m.Called(ctx, planID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Price), args.Error(1)
	}
	return nil, args.Error(1)
}

// FeeRuleRepository is a mock of repository.FeeRuleRepository.
type FeeRuleRepository struct {
	mock.Mock
}

func (m *FeeRuleRepository) ActiveForCurrency(ctx context.Context, currency string) (*domain.FeeRule, error) {
	args := m.Called(ctx, currency)
	if v := args.Get(0); v != nil {
		return v.(*domain.FeeRule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FeeRuleRepository) Create(ctx context.Context, rule *domain.FeeRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *FeeRuleRepository) DeactivateForCurrency(ctx context.Context, currency string) error {
	return m.Called(ctx, currency).Error(0)
}

func (m *FeeRuleRepository) ListByCurrency(ctx context.Context, currency string) ([]*domain.FeeRule, error) {
	args := m.Called(ctx, currency)
	if v := args.Get(0); v != nil {
		return v.([]*domain.FeeRule), args.Error(1)
	}
	return nil, args.Error(1)
}

// PaymentTokenRepository is a mock of repository.PaymentTokenRepository.
type PaymentTokenRepository struct {
	mock.Mock
}

func (m *PaymentTokenRepository) Create(ctx context.Context, token *domain.PaymentToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *PaymentTokenRepository) LatestForCard(ctx context.Context, userID uuid.UUID, cardMasked string) (*domain.PaymentToken, error) {
	args := m.Called(ctx, userID, cardMasked)
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentToken), args.Error(1)
	}
	return nil, args.Error(1)
}
