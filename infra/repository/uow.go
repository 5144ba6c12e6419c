package repository

import (
	"context"

	"gorm.io/gorm"

	repo "github.com/tolempay/billing/pkg/repository"
)

// UoW binds the repositories to one database session. Inside Do, every
// repository returned by the accessors runs on the same transaction, so a
// buyer debit, a seller credit, and the record finalization commit or roll
// back as one unit.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a UnitOfWork over the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn in a transaction boundary, providing a UoW whose repositories
// use the transaction session.
func (u *UoW) Do(ctx context.Context, fn func(uow repo.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

// session returns the transaction when inside Do, the base session otherwise.
func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UoW) Wallets() (repo.WalletRepository, error) {
	return NewWalletRepository(u.session()), nil
}

func (u *UoW) Transactions() (repo.TransactionRepository, error) {
	return NewTransactionRepository(u.session()), nil
}

func (u *UoW) Subscriptions() (repo.SubscriptionRepository, error) {
	return NewSubscriptionRepository(u.session()), nil
}

func (u *UoW) Plans() (repo.PlanRepository, error) {
	return NewPlanRepository(u.session()), nil
}

func (u *UoW) FeeRules() (repo.FeeRuleRepository, error) {
	return NewFeeRuleRepository(u.session()), nil
}

func (u *UoW) PaymentTokens() (repo.PaymentTokenRepository, error) {
	return NewPaymentTokenRepository(u.session()), nil
}
