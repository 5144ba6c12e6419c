package repository

import "context"

// UnitOfWork is the transaction boundary. Do runs fn inside one database
// transaction; every repository obtained from the UnitOfWork passed to fn is
// bound to that transaction, so multi-row mutations (debit buyer, credit
// seller, finalize the record) commit or roll back together. If fn returns
// an error the transaction is rolled back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	Wallets() (WalletRepository, error)
	Transactions() (TransactionRepository, error)
	Subscriptions() (SubscriptionRepository, error)
	Plans() (PlanRepository, error)
	FeeRules() (FeeRuleRepository, error)
	PaymentTokens() (PaymentTokenRepository, error)
}
