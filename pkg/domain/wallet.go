package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletBalance is the stored-value balance of one user in one currency.
// The (UserID, Currency) pair is unique and Amount never goes negative;
// both are enforced by the storage layer, not merely assumed here.
type WalletBalance struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  string
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BalanceCheck is the advisory result of a sufficiency check. It exists for
// fast user-facing feedback only: the debit itself re-validates inside its
// own transaction and is the sole source of truth.
type BalanceCheck struct {
	Sufficient bool
	Current    decimal.Decimal
}
