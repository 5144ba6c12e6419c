package mocks

import (
	"context"

	repo "github.com/tolempay/billing/pkg/repository"
)

// UnitOfWork is a stub repository.UnitOfWork for service tests. Do runs the
// closure inline against the same stub, so "inside the transaction" and
// "outside" see the same mocks — which is exactly what services rely on.
type UnitOfWork struct {
	WalletRepo       *WalletRepository
	TransactionRepo  *TransactionRepository
	SubscriptionRepo *SubscriptionRepository
	PlanRepo         *PlanRepository
	FeeRuleRepo      *FeeRuleRepository
	PaymentTokenRepo *PaymentTokenRepository

	// DoErr, when set, is returned by Do without running the closure.
	DoErr error
}

// NewUnitOfWork creates a stub with fresh mocks for every repository.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{
		WalletRepo:       &WalletRepository{},
		TransactionRepo:  &TransactionRepository{},
		SubscriptionRepo: &SubscriptionRepository{},
		PlanRepo:         &PlanRepository{},
		FeeRuleRepo:      &FeeRuleRepository{},
		PaymentTokenRepo: &PaymentTokenRepository{},
	}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(uow repo.UnitOfWork) error) error {
	if u.DoErr != nil {
		return u.DoErr
	}
	return fn(u)
}

func (u *UnitOfWork) Wallets() (repo.WalletRepository, error) {
	return u.WalletRepo, nil
}

func (u *UnitOfWork) Transactions() (repo.TransactionRepository, error) {
	return u.TransactionRepo, nil
}

func (u *UnitOfWork) Subscriptions() (repo.SubscriptionRepository, error) {
	return u.SubscriptionRepo, nil
}

func (u *UnitOfWork) Plans() (repo.PlanRepository, error) {
	return u.PlanRepo, nil
}

func (u *UnitOfWork) FeeRules() (repo.FeeRuleRepository, error) {
	return u.FeeRuleRepo, nil
}

func (u *UnitOfWork) PaymentTokens() (repo.PaymentTokenRepository, error) {
	return u.PaymentTokenRepo, nil
}
