// Package repository defines the data access contracts of the billing
// engine. Implementations live in infra/repository; services depend only on
// these interfaces and on UnitOfWork for transaction boundaries.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tolempay/billing/pkg/domain"
)

// WalletRepository owns the per-user-per-currency balance rows.
//
// Debit and Credit are atomic against the repository's session: inside a
// UnitOfWork they share its transaction. Debit is the single source of truth
// for sufficiency — the guard re-checks the balance in the same statement
// that decrements it, so two concurrent debits can never both succeed on a
// stale read.
type WalletRepository interface {
	// Get returns the balance row, or domain.ErrWalletNotFound.
	Get(ctx context.Context, userID uuid.UUID, currency string) (*domain.WalletBalance, error)
	// ListByUser returns all balance rows of a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.WalletBalance, error)
	// Seed idempotently creates zero-balance rows for the given currencies.
	Seed(ctx context.Context, userID uuid.UUID, currencies []string) error
	// Debit decrements the balance if and only if it stays non-negative.
	// Returns domain.ErrInsufficientFunds otherwise; no mutation on failure.
	Debit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error
	// Credit increments the balance, creating the row if absent. It never
	// fails on business grounds.
	Credit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) error
}

// TransactionUpdate carries the mutable fields of a transaction record.
// Amount is deliberately absent: it is immutable after creation.
type TransactionUpdate struct {
	PaymentID       *string
	GatewayResponse *string
	SubscriptionID  *uuid.UUID
}

// TransactionRepository owns the append-only transaction log.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	// Get returns a transaction by id, or domain.ErrTransactionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetByOrderID resolves the gateway correlation key.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error)
	// UpdateStatus advances a pending record to a terminal status and applies
	// the update. It returns domain.ErrInvalidTransition when the record is
	// already terminal, leaving it untouched.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, update TransactionUpdate) error
	// ExistsCompletedPurchase reports whether the user already holds a
	// completed purchase of the item.
	ExistsCompletedPurchase(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
}

// SubscriptionRepository owns subscription periods.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	// ActiveForUser returns the subscription with the latest expiry still in
	// the future, or domain.ErrSubscriptionNotFound.
	ActiveForUser(ctx context.Context, userID uuid.UUID, at time.Time) (*domain.Subscription, error)
	// ExpiringWithin returns auto-renewing subscriptions whose expiry falls
	// inside (from, until].
	ExpiringWithin(ctx context.Context, from, until time.Time) ([]*domain.Subscription, error)
	DisableAutoRenewal(ctx context.Context, id uuid.UUID) error
	// Cancel turns auto-renewal off and stamps CancelledAt without touching
	// ExpiredAt.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) error
	// DeleteExpiredBefore purges rows whose expiry predates the cutoff,
	// returning the number removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PlanRepository reads subscription plans and their price tiers.
type PlanRepository interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*domain.Plan, error)
	GetPrice(ctx context.Context, id uuid.UUID) (*domain.Price, error)
	ListPlans(ctx context.Context) ([]*domain.Plan, error)
	ListPrices(ctx context.Context, planID uuid.UUID) ([]*domain.Price, error)
}

// FeeRuleRepository owns the append-only fee rule history.
type FeeRuleRepository interface {
	// ActiveForCurrency returns the single active rule, or (nil, nil) when
	// the currency has no rule configured.
	ActiveForCurrency(ctx context.Context, currency string) (*domain.FeeRule, error)
	Create(ctx context.Context, rule *domain.FeeRule) error
	// DeactivateForCurrency retires the currently active rule, if any.
	DeactivateForCurrency(ctx context.Context, currency string) error
	ListByCurrency(ctx context.Context, currency string) ([]*domain.FeeRule, error)
}

// PaymentTokenRepository owns the append-only recurring token store.
type PaymentTokenRepository interface {
	Create(ctx context.Context, token *domain.PaymentToken) error
	// LatestForCard returns the most recently created token for the user and
	// masked card, or domain.ErrPaymentTokenNotFound.
	LatestForCard(ctx context.Context, userID uuid.UUID, cardMasked string) (*domain.PaymentToken, error)
}
